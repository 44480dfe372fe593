package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nilFactory(*slog.Logger) Adapter { return nil }

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"postgres", "sqlite"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "[postgres sqlite]")
	assert.Contains(t, msg, "labcms.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	if !IsRegistered("test_store") {
		Register("Test_Store", nilFactory, "test_store_alias")
	}

	tests := []struct {
		name string
		want bool
	}{
		{"test_store", true},
		{"TEST_STORE", true},
		{"test_store_alias", true},
		{" Test_Store_Alias ", true},
		{"test_store_other", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRegistered(tt.name))
		})
	}

	assert.Equal(t, "test_store", Canonical("TEST_STORE_ALIAS"))
	assert.Equal(t, "nosuch", Canonical("NoSuch"))
	assert.Contains(t, ListAdapters(), "test_store")
	assert.NotContains(t, ListAdapters(), "test_store_alias", "aliases are not listed")
}

func TestRegister_Duplicate(t *testing.T) {
	if !IsRegistered("dup_store") {
		Register("dup_store", nilFactory, "dup_alias")
	}

	assert.Panics(t, func() { Register("dup_store", nilFactory) })
	assert.Panics(t, func() { Register("DUP_ALIAS", nilFactory) })
	assert.Panics(t, func() { Register("other_store", nilFactory, "dup_store") })
	assert.Panics(t, func() { Register("nil_store", nil) })
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestNewAdapter_Unknown(t *testing.T) {
	_, err := NewAdapter(Config{Type: "nonexistent"}, nil)
	require.Error(t, err)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Type)
}
