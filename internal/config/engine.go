package config

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EngineConfig holds the policy knobs of the booking, ledger and messaging core
type EngineConfig struct {
	SeekerCommissionRate   decimal.Decimal
	ProviderCommissionRate decimal.Decimal
	OverdueWindow          time.Duration
	PenaltyRate            decimal.Decimal
	OwnerAccountID         string
	AutoReplyDelay         time.Duration
	MaxContentLength       int
	RealtimeBufferSize     int
	DuesQuoteTTL           time.Duration
}

// LoadEngineConfig reads the engine configuration from viper with defaults
func LoadEngineConfig() *EngineConfig {
	viper.SetDefault("commission.seeker_rate", "0.05")
	viper.SetDefault("commission.provider_rate", "0.10")
	viper.SetDefault("ledger.overdue_days", 30)
	viper.SetDefault("ledger.penalty_rate", "0.10")
	viper.SetDefault("messaging.owner_account_id", "")
	viper.SetDefault("messaging.autoreply_delay", 2*time.Second)
	viper.SetDefault("messaging.max_content_length", 2000)
	viper.SetDefault("realtime.buffer_size", 64)
	viper.SetDefault("dues.quote_ttl", 10*time.Minute)

	return &EngineConfig{
		SeekerCommissionRate:   getRate("commission.seeker_rate"),
		ProviderCommissionRate: getRate("commission.provider_rate"),
		OverdueWindow:          time.Duration(viper.GetInt("ledger.overdue_days")) * 24 * time.Hour,
		PenaltyRate:            getRate("ledger.penalty_rate"),
		OwnerAccountID:         viper.GetString("messaging.owner_account_id"),
		AutoReplyDelay:         viper.GetDuration("messaging.autoreply_delay"),
		MaxContentLength:       viper.GetInt("messaging.max_content_length"),
		RealtimeBufferSize:     viper.GetInt("realtime.buffer_size"),
		DuesQuoteTTL:           viper.GetDuration("dues.quote_ttl"),
	}
}

// Rates are read as strings so "0.10" stays exact
func getRate(key string) decimal.Decimal {
	rate, err := decimal.NewFromString(viper.GetString(key))
	if err != nil || rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}
