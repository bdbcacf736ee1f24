package emu

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BridgeConfig holds configuration for the emulator bridge client.
type BridgeConfig struct {
	// BaseURL is the address of the emulator sidecar process.
	// Defaults to "http://127.0.0.1:8765" if empty.
	BaseURL string

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// Defaults to a client with a 5s timeout; calls on the hot loop should
	// stay well under that.
	HTTPClient *http.Client
}

// Bridge talks to an emulator running in a sidecar process over a local
// HTTP API. It implements Device.
//
// The bridge never retries: the loop runs at a fixed cadence and a stale
// tick or read is worth less than the next one. Failed memory reads report
// zero bytes, which downstream decoding treats as an invalid transient
// state.
type Bridge struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewBridge creates a bridge client with the given configuration.
func NewBridge(cfg BridgeConfig, logger zerolog.Logger) *Bridge {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8765"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Bridge{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger.With().Str("component", "emu").Logger(),
	}
}

// BridgeError represents a non-200 response from the emulator sidecar.
type BridgeError struct {
	StatusCode int
	Body       string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("emu: HTTP %d: %s", e.StatusCode, e.Body)
}

// Ping checks that the sidecar is up.
func (b *Bridge) Ping(ctx context.Context) error {
	return b.doJSON(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Tick advances emulation by the given number of frames.
func (b *Bridge) Tick(ctx context.Context, frames int) error {
	body := map[string]int{"frames": frames}
	return b.doJSON(ctx, http.MethodPost, "/tick", body, nil)
}

// PressButton holds a button for the given number of frames.
func (b *Bridge) PressButton(ctx context.Context, button string, frames int) error {
	body := map[string]any{"button": button, "frames": frames}
	return b.doJSON(ctx, http.MethodPost, "/input", body, nil)
}

// ReadMemory fills buf from emulated memory starting at addr. On any
// transport failure it returns 0 with buf zeroed.
func (b *Bridge) ReadMemory(ctx context.Context, addr uint16, buf []byte) int {
	var out struct {
		Data string `json:"data"`
	}
	path := fmt.Sprintf("/memory?addr=%d&len=%d", addr, len(buf))
	if err := b.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		b.logger.Debug().Err(err).Uint16("addr", addr).Msg("memory read failed")
		clear(buf)
		return 0
	}
	data, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		b.logger.Debug().Err(err).Uint16("addr", addr).Msg("memory read returned bad base64")
		clear(buf)
		return 0
	}
	return copy(buf, data)
}

// SaveState captures a full emulator state blob.
func (b *Bridge) SaveState(ctx context.Context) ([]byte, error) {
	var out struct {
		Data string `json:"data"`
	}
	if err := b.doJSON(ctx, http.MethodGet, "/state", nil, &out); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		return nil, fmt.Errorf("emu: decode state blob: %w", err)
	}
	return data, nil
}

// LoadState restores a previously captured state blob.
func (b *Bridge) LoadState(ctx context.Context, data []byte) error {
	body := map[string]string{"data": base64.StdEncoding.EncodeToString(data)}
	return b.doJSON(ctx, http.MethodPost, "/state", body, nil)
}

// Close releases the underlying HTTP client's idle connections.
func (b *Bridge) Close() error {
	b.http.CloseIdleConnections()
	return nil
}

// doJSON sends a single request to the sidecar and decodes the response
// into out when out is non-nil.
func (b *Bridge) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("emu: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("emu: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("emu: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("emu: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &BridgeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("emu: decode response: %w", err)
		}
	}
	return nil
}
