package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SessionConfig identifies the authenticated user for this client instance.
// The bearer token comes from config/env in dev; in prod it is resolved from
// AWS SSM Parameter Store.
type SessionConfig struct {
	UserID string `mapstructure:"user_id"`
	Token  string `mapstructure:"token"`
}

// SessionContext is the resolved session handed to the view-model and the
// REST client. Core logic never performs ambient credential lookups; it only
// sees this value.
type SessionContext struct {
	UserID string
	Token  string
}

// Resolve builds the SessionContext for the given environment.
func (cfg *SessionConfig) Resolve(env string) SessionContext {
	if env == "prod" {
		token := getParameterStoreValue("TRADING_API_TOKEN", true)
		if token != "" {
			return SessionContext{UserID: cfg.UserID, Token: token}
		}
	}

	return SessionContext{UserID: cfg.UserID, Token: cfg.Token}
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
