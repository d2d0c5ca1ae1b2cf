package service

import (
	"context"
	"errors"
	"testing"
)

func validAddress() CreateAddressInput {
	return CreateAddressInput{
		FullName:     "Tran Thi B",
		Phone:        "0987654321",
		ProvinceCode: "01",
		ProvinceName: "Hà Nội",
		DistrictName: "Cầu Giấy",
		WardName:     "Dịch Vọng",
		Street:       "144 Xuân Thủy",
		Lng:          ptr(105.7826),
		Lat:          ptr(21.0367),
	}
}

func defaults(t *testing.T, svc AddressService, uid string) int {
	t.Helper()
	list, err := svc.List(context.Background(), User(uid))
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddressService_Create(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewAddressService(f.store)
	ctx := context.Background()

	first, err := svc.Create(ctx, User("u1"), validAddress())
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsDefault {
		t.Error("first address must become the default")
	}
	second, err := svc.Create(ctx, User("u1"), validAddress())
	if err != nil {
		t.Fatal(err)
	}
	if second.IsDefault {
		t.Error("second address must not steal the default")
	}

	in := validAddress()
	in.IsDefault = true
	third, err := svc.Create(ctx, User("u1"), in)
	if err != nil {
		t.Fatal(err)
	}
	if n := defaults(t, svc, "u1"); n != 1 {
		t.Errorf("defaults = %d, want 1", n)
	}
	def, err := svc.GetDefault(ctx, User("u1"))
	if err != nil || def.ID != third.ID {
		t.Errorf("default = %v, %v; want %d", def, err, third.ID)
	}
}

func TestAddressService_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mut       func(in *CreateAddressInput)
		wantField string
	}{
		{"short phone", func(in *CreateAddressInput) { in.Phone = "098765" }, "phone"},
		{"phone without leading zero", func(in *CreateAddressInput) { in.Phone = "9876543210" }, "phone"},
		{"blank name", func(in *CreateAddressInput) { in.FullName = "   " }, "full_name"},
		{"missing province", func(in *CreateAddressInput) { in.ProvinceName = "" }, "province_name"},
		{"missing street", func(in *CreateAddressInput) { in.Street = "" }, "street"},
		{"missing ward", func(in *CreateAddressInput) { in.WardName = " " }, "ward_name"},
		{"missing longitude", func(in *CreateAddressInput) { in.Lng = nil }, "lng"},
		{"missing latitude", func(in *CreateAddressInput) { in.Lat = nil }, "lat"},
		{"no coordinates", func(in *CreateAddressInput) { in.Lng, in.Lat = nil, nil }, "lng"},
		{"latitude out of range", func(in *CreateAddressInput) { in.Lat, in.Lng = ptr(123.0), ptr(105.8) }, "lat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewAddressService(newFixture(t).store)
			in := validAddress()
			tt.mut(&in)
			_, err := svc.Create(context.Background(), User("u1"), in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Fatalf("err = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestAddressService_SetDefault(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewAddressService(f.store)
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 3; i++ {
		a, err := svc.Create(ctx, User("u1"), validAddress())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ID)
	}
	if _, err := svc.SetDefault(ctx, User("u1"), ids[2]); err != nil {
		t.Fatal(err)
	}
	if n := defaults(t, svc, "u1"); n != 1 {
		t.Errorf("defaults = %d, want 1", n)
	}
	list, _ := svc.List(ctx, User("u1"))
	if list[0].ID != ids[2] {
		t.Errorf("default not listed first: %+v", list[0])
	}

	if _, err := svc.SetDefault(ctx, User("intruder"), ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign address err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, User("intruder"), ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get err = %v, want ErrNotFound", err)
	}
}
