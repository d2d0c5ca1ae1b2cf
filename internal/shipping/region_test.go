package shipping

import "testing"

func TestMatchRegion(t *testing.T) {
	tests := []struct {
		name     string
		regions  []string
		province string
		want     bool
	}{
		{"empty set matches", nil, "Huế", true},
		{"nationwide matches", []string{"Hà Nội", "Nationwide "}, "Cà Mau", true},
		{"exact", []string{"Đà Nẵng"}, "Đà Nẵng", true},
		{"case and space", []string{"  HÀ   NỘI"}, "hà nội", true},
		{"region contains province", []string{"Thành phố Hồ Chí Minh"}, "Hồ Chí Minh", true},
		{"province contains region", []string{"Hà Nội"}, "Thành phố Hà Nội", true},
		{"no match", []string{"Hà Nội"}, "Hải Phòng", false},
		{"empty province", nil, "   ", false},
		{"empty region entries skipped", []string{"", " "}, "Huế", false},
		{"decomposed input", []string{"Hà Nội"}, "Ha\u0300 No\u0323\u0302i", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchRegion(tt.regions, tt.province); got != tt.want {
				t.Fatalf("MatchRegion(%q, %q)=%v want %v", tt.regions, tt.province, got, tt.want)
			}
		})
	}
}

func TestCanShipToRegionUnrestricted(t *testing.T) {
	for _, cfg := range []*Config{nil, {}, {Regions: []string{"nationwide"}}} {
		for _, p := range []string{"Hà Nội", "x", "Bà Rịa - Vũng Tàu"} {
			if !CanShipToRegion(cfg, p) {
				t.Fatalf("cfg=%+v province=%q", cfg, p)
			}
		}
	}
}

func TestSameProvince(t *testing.T) {
	if !SameProvince(" Hà Nội", "hà nội") {
		t.Fatal("expected same")
	}
	if SameProvince("", "") {
		t.Fatal("empty provinces are not the same place")
	}
	if SameProvince("Hà Nội", "Thành phố Hà Nội") {
		t.Fatal("meetup uses exact match")
	}
}
