package stripe

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/boardpro-billing/pkg/config"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec_x", Env: "test"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1", Env: "test"}, nil)
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec_x", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec_x", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec_x", Env: "LIVE"}, nil)
	require.NoError(t, err)
	require.Equal(t, liveEnv, client.Environment())
	require.NotNil(t, client.Verifier())
}

func TestEventVerifier(t *testing.T) {
	verifier, err := NewEventVerifier("whsec_test", true)
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","object":"invoice"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := verifier.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)
	require.Equal(t, "invoice.payment_succeeded", string(event.Type))

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})
	_, err = verifier.ConstructEvent(payload, forged.Header)
	require.Error(t, err)

	_, err = verifier.ConstructEvent(payload, "")
	require.Error(t, err)
}

func TestLeveledLoggerForwardsEntries(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "stripe-test", Level: zerolog.DebugLevel, Output: &buf})
	l := newLeveledLogger(logg)

	l.Warnf("retrying request %s", "req_1")
	l.Errorf("request failed with status %d", 500)

	out := buf.String()
	require.Contains(t, out, "retrying request req_1")
	require.Contains(t, out, "request failed with status 500")
	require.Contains(t, out, `"component":"stripe-go"`)
}

func TestValidateAPIKeyPrefixes(t *testing.T) {
	require.NoError(t, validateAPIKey(testEnv, "rk_test_restricted"))
	require.NoError(t, validateAPIKey(liveEnv, "sk_live_abc"))
	require.ErrorContains(t, validateAPIKey(liveEnv, "sk_test_abc"), "sk_live_")
	require.ErrorIs(t, validateAPIKey("staging", "sk_test_abc"), errInvalidStripeEnv)

	env, err := normalizeEnv("")
	require.NoError(t, err)
	require.Equal(t, testEnv, env)
}
