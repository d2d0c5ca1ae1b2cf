package service

import (
	"context"
	"strings"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

const maxAddressesPerUser = 20

type CreateAddressInput struct {
	Label        string   `json:"label" validate:"max=64"`
	FullName     string   `json:"full_name" validate:"required,max=120"`
	Phone        string   `json:"phone" validate:"required,vnphone"`
	ProvinceCode string   `json:"province_code" validate:"max=32"`
	ProvinceName string   `json:"province_name" validate:"required,max=128"`
	DistrictCode string   `json:"district_code" validate:"max=32"`
	DistrictName string   `json:"district_name" validate:"required,max=128"`
	WardCode     string   `json:"ward_code" validate:"max=32"`
	WardName     string   `json:"ward_name" validate:"required,max=128"`
	Street       string   `json:"street" validate:"required,max=255"`
	Lng          *float64 `json:"lng" validate:"required,longitude"`
	Lat          *float64 `json:"lat" validate:"required,latitude"`
	IsDefault    bool     `json:"is_default"`
}

type AddressService interface {
	Create(ctx context.Context, caller Caller, in CreateAddressInput) (*model.Address, error)
	List(ctx context.Context, caller Caller) ([]model.Address, error)
	Get(ctx context.Context, caller Caller, id uint64) (*model.Address, error)
	GetDefault(ctx context.Context, caller Caller) (*model.Address, error)
	SetDefault(ctx context.Context, caller Caller, id uint64) (*model.Address, error)
}

type addressService struct {
	store repository.Store
}

func NewAddressService(store repository.Store) AddressService {
	return &addressService{store: store}
}

// Create stores a new address. The user's first address always becomes the
// default.
func (s *addressService) Create(ctx context.Context, caller Caller, in CreateAddressInput) (*model.Address, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	trimAddress(&in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	a := &model.Address{
		UserUID:  caller.UID,
		Label:    in.Label,
		FullName: in.FullName,
		Phone:    in.Phone,
		Province: model.Division{Code: in.ProvinceCode, Name: in.ProvinceName},
		District: model.Division{Code: in.DistrictCode, Name: in.DistrictName},
		Ward:     model.Division{Code: in.WardCode, Name: in.WardName},
		Street:   in.Street,
		Location: model.GeoPoint{Lng: *in.Lng, Lat: *in.Lat},
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		n, err := tx.Addresses().CountByUser(ctx, caller.UID)
		if err != nil {
			return err
		}
		if n >= maxAddressesPerUser {
			return invalid("address", "address book is full")
		}
		if err := tx.Addresses().Create(ctx, a); err != nil {
			return err
		}
		if n == 0 || in.IsDefault {
			if err := tx.Addresses().SetDefault(ctx, a.ID, caller.UID); err != nil {
				return err
			}
			a.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return nil, fromRepo(err)
	}
	return a, nil
}

func trimAddress(in *CreateAddressInput) {
	for _, f := range []*string{
		&in.Label, &in.FullName, &in.Phone,
		&in.ProvinceCode, &in.ProvinceName,
		&in.DistrictCode, &in.DistrictName,
		&in.WardCode, &in.WardName, &in.Street,
	} {
		*f = strings.TrimSpace(*f)
	}
}

func (s *addressService) List(ctx context.Context, caller Caller) ([]model.Address, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	list, err := s.store.Addresses().ListByUser(ctx, caller.UID)
	return list, fromRepo(err)
}

func (s *addressService) Get(ctx context.Context, caller Caller, id uint64) (*model.Address, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	a, err := s.store.Addresses().FindByID(ctx, id, caller.UID)
	return a, fromRepo(err)
}

func (s *addressService) GetDefault(ctx context.Context, caller Caller) (*model.Address, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	a, err := s.store.Addresses().FindDefault(ctx, caller.UID)
	return a, fromRepo(err)
}

func (s *addressService) SetDefault(ctx context.Context, caller Caller, id uint64) (*model.Address, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	var out *model.Address
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		a, err := tx.Addresses().FindByID(ctx, id, caller.UID)
		if err != nil {
			return err
		}
		if err := tx.Addresses().SetDefault(ctx, a.ID, caller.UID); err != nil {
			return err
		}
		a.IsDefault = true
		out = a
		return nil
	})
	if err != nil {
		return nil, fromRepo(err)
	}
	return out, nil
}
