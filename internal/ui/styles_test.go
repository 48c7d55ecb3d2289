package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoContainsPrefixAndMessage(t *testing.T) {
	result := Info("test message")
	assert.Contains(t, result, "ℹ")
	assert.Contains(t, result, "test message")
}

func TestInfoEmptyMessage(t *testing.T) {
	result := Info("")
	assert.Contains(t, result, "ℹ")
}

func TestHintContainsPrefixAndMessage(t *testing.T) {
	result := Hint("try this command")
	assert.Contains(t, result, "→")
	assert.Contains(t, result, "try this command")
}

func TestHintEmptyMessage(t *testing.T) {
	result := Hint("")
	assert.Contains(t, result, "→")
}

func TestSuccessContainsPrefixAndMessage(t *testing.T) {
	result := Success("done")
	assert.Contains(t, result, "✓")
	assert.Contains(t, result, "done")
}

func TestWarnContainsPrefixAndMessage(t *testing.T) {
	result := Warn("careful")
	assert.Contains(t, result, "âš ")
	assert.Contains(t, result, "careful")
}

func TestErrContainsPrefixAndMessage(t *testing.T) {
	result := Err("failed")
	assert.Contains(t, result, "✗")
	assert.Contains(t, result, "failed")
}

func TestAddrContainsAddress(t *testing.T) {
	result := Addr("0xABCDEF")
	assert.Contains(t, result, "0xABCDEF")
}

func TestValContainsValue(t *testing.T) {
	result := Val("1.5 ETH")
	assert.Contains(t, result, "1.5 ETH")
}

func TestMetaContainsText(t *testing.T) {
	result := Meta("some metadata")
	assert.Contains(t, result, "some metadata")
}

func TestChainNameContainsName(t *testing.T) {
	result := ChainName("ethereum")
	assert.Contains(t, result, "ethereum")
}

func TestShortenAddressShortInput(t *testing.T) {
	assert.Equal(t, "0x1234", ShortenAddress("0x1234"))
	assert.Equal(t, "", ShortenAddress(""))
}

func TestShortenAddressBoundary(t *testing.T) {
	assert.Equal(t, "0x1234...5678", ShortenAddress("0x12345678"))
	assert.Equal(t, "0x12345", ShortenAddress("0x12345"))
}

func TestShortenAddressLong(t *testing.T) {
	got := ShortenAddress("0xABCDEF1234567890ABCDEF1234567890ABCDEF12")
	assert.Equal(t, "0xABCD...EF12", got)
}

func TestChainLabel(t *testing.T) {
	assert.Equal(t, "Ethereum Mainnet", ChainLabel(1))
	assert.Equal(t, "Ganache", ChainLabel(1337))
	assert.Equal(t, "chain", ChainLabel(424242))
}

func TestInfoDifferentFromHint(t *testing.T) {
	info := Info("message")
	hint := Hint("message")
	assert.NotEqual(t, info, hint, "Info and Hint should produce different output for the same message")
}

func TestAllFormattersReturnNonEmpty(t *testing.T) {
	formatters := map[string]func(string) string{
		"Success":   Success,
		"Warn":      Warn,
		"Err":       Err,
		"Info":      Info,
		"Hint":      Hint,
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			result := fn("test")
			assert.NotEmpty(t, result, "%s should return non-empty string", name)
			assert.Contains(t, result, "test", "%s should contain the input message", name)
		})
	}
}
