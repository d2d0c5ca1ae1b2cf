package db

import (
	"testing"

	"github.com/shinyyama/closet-market/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "plain host",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "market"},
			want: "u:p@tcp(db:3306)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "tcp prefix kept",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "tcp(10.0.0.1:3307)", DBName: "market"},
			want: "u:p@tcp(10.0.0.1:3307)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "socket path",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "/tmp/mysql.sock", DBName: "market"},
			want: "u:p@unix(/tmp/mysql.sock)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "cloud sql instance",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "ignored", DBName: "market", InstanceConnectionName: "proj:asia:inst"},
			want: "u:p@unix(/cloudsql/proj:asia:inst)/market?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "postgres default port",
			cfg:  config.Config{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "pg", DBPort: "3306", DBName: "market"},
			want: "host=pg port=5432 user=u password=p dbname=market sslmode=disable TimeZone=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if got := BuildDSN(&cfg); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
