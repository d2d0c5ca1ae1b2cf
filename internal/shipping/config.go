package shipping

// Config is the seller's shipping configuration as stored. Any field may be
// nil; Resolve turns it into concrete Settings.
type Config struct {
	PlatformShippingEnabled *bool    `json:"platform_shipping_enabled,omitempty"`
	SelfDeliveryEnabled     *bool    `json:"self_delivery_enabled,omitempty"`
	MeetupEnabled           *bool    `json:"meetup_enabled,omitempty"`
	Regions                 []string `json:"shipping_regions,omitempty"`
	FixedFee                *int64   `json:"fixed_shipping_fee,omitempty"`
}

// Settings is a fully resolved Config.
type Settings struct {
	PlatformShipping bool
	SelfDelivery     bool
	Meetup           bool
	Regions          []string
	// FixedFee is 0 when the seller did not set one.
	FixedFee int64
}

// DefaultSettings applies when a listing has no shipping configuration at all.
func DefaultSettings() Settings {
	return Settings{PlatformShipping: true, SelfDelivery: false, Meetup: true}
}

// IsEmpty reports whether the seller never filled in any shipping field.
func (c *Config) IsEmpty() bool {
	return c == nil || (c.PlatformShippingEnabled == nil && c.SelfDeliveryEnabled == nil &&
		c.MeetupEnabled == nil && len(c.Regions) == 0 && c.FixedFee == nil)
}

// Resolve fills unset flags. A missing config gets DefaultSettings; inside a
// partial config every unset flag counts as enabled.
func (c *Config) Resolve() Settings {
	if c.IsEmpty() {
		return DefaultSettings()
	}
	s := Settings{
		PlatformShipping: enabled(c.PlatformShippingEnabled),
		SelfDelivery:     enabled(c.SelfDeliveryEnabled),
		Meetup:           enabled(c.MeetupEnabled),
		Regions:          c.Regions,
	}
	if c.FixedFee != nil && *c.FixedFee > 0 {
		s.FixedFee = *c.FixedFee
	}
	return s
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

func Bool(v bool) *bool { return &v }

func Int64(v int64) *int64 { return &v }
