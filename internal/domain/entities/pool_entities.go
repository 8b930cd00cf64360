package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Platform is a yield protocol front-end (Lido, Morpho, ...)
type Platform struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Protocol  *string   `db:"protocol" json:"protocol,omitempty"`
	Website   *string   `db:"website" json:"website,omitempty"`
	LogoURL   *string   `db:"logo_url" json:"logoUrl,omitempty"`
	IsVisible bool      `db:"is_visible" json:"isVisible"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Pool is a yield pool joined to its platform
type Pool struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PlatformID   uuid.UUID       `db:"platform_id" json:"platformId"`
	Name         string          `db:"name" json:"name"`
	TokenPair    string          `db:"token_pair" json:"tokenPair"`
	TokenAddress *string         `db:"token_address" json:"tokenAddress,omitempty"`
	TokenSymbol  *string         `db:"token_symbol" json:"tokenSymbol,omitempty"`
	Chain        string          `db:"chain" json:"chain"`
	APY          decimal.Decimal `db:"apy" json:"apy"`
	TVL          decimal.Decimal `db:"tvl" json:"tvl"`
	RawData      RawData         `db:"raw_data" json:"rawData,omitempty"`
	IsVisible    bool            `db:"is_visible" json:"isVisible"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	Platform     Platform        `db:"platform" json:"platform"`
}

// Visible reports whether both the pool and its platform are published
func (p *Pool) Visible() bool {
	return p.IsVisible && p.Platform.IsVisible
}

// Symbol returns the token symbol, falling back to the token pair
func (p *Pool) Symbol() string {
	if p.TokenSymbol != nil && *p.TokenSymbol != "" {
		return *p.TokenSymbol
	}
	return p.TokenPair
}

// RawData is the provider payload stored as JSONB
type RawData map[string]interface{}

// Scan implements sql.Scanner
func (r *RawData) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported raw_data type %T", value)
	}

	if len(data) == 0 {
		*r = nil
		return nil
	}
	return json.Unmarshal(data, (*map[string]interface{})(r))
}

// Value implements driver.Valuer
func (r RawData) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(r))
}

// String returns a string field at the given path, e.g. ("asset", "address")
func (r RawData) String(path ...string) (string, bool) {
	var cur interface{} = map[string]interface{}(r)
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok && s != ""
}

// PoolListResponse is returned by GET /api/pools
type PoolListResponse struct {
	Pools  []*Pool `json:"pools"`
	Count  int     `json:"count"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// PlatformListResponse is returned by GET /api/platforms
type PlatformListResponse struct {
	Platforms []*Platform `json:"platforms"`
	Count     int         `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
