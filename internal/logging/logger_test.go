package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	return fields
}

func TestComponentFromCarriesContextFields(t *testing.T) {
	buf := captureJSON(t)

	ctx := WithContext(context.Background(), WithAccount(Logger, 3))
	log := ComponentFrom(ctx, "conversation")
	log.Info().Msg("built")

	fields := decodeLine(t, buf)
	require.Equal(t, "conversation", fields["component"])
	require.EqualValues(t, 3, fields["account_id"])
	require.Equal(t, "built", fields["message"])
}

func TestFromContextFallsBackToBase(t *testing.T) {
	buf := captureJSON(t)

	log := WithItem(FromContext(context.Background()), 12)
	log.Warn().Msg("missing")

	fields := decodeLine(t, buf)
	require.EqualValues(t, 12, fields["item_id"])
	require.NotContains(t, fields, "component")
	require.NotContains(t, fields, "account_id")
}

func TestParseLevelEdgeCases(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, parseLevel(""))
	require.Equal(t, zerolog.ErrorLevel, parseLevel(" ERROR "))
	require.Equal(t, zerolog.Disabled, parseLevel("off"))
}
