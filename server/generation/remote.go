package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteModel talks to a sequence-to-sequence inference server over HTTP.
// It implements Model and Pinger, and also Tokenizer so a deployment can use
// the server's own vocabulary.
//
// Endpoints, relative to the base URL:
//
//	POST /generate  {input_ids, attention_mask, max_length, num_beams, early_stopping} -> {sequences}
//	POST /encode    {text, max_length, truncation, pad_to_max_length} -> {input_ids, attention_mask}
//	POST /decode    {ids, skip_special_tokens} -> {text}
//	GET  /health    200 when the model is loaded
type RemoteModel struct {
	baseURL string
	name    string
	client  *http.Client
}

// NewRemoteModel creates a client for the server at baseURL serving model name.
// A nil client uses a default one with no timeout.
func NewRemoteModel(baseURL, name string, client *http.Client) *RemoteModel {
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		client:  client,
	}
}

type generateRequest struct {
	Model         string  `json:"model,omitempty"`
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
	Options
}

type generateResponse struct {
	Sequences [][]int `json:"sequences"`
}

type encodeRequest struct {
	Text           string `json:"text"`
	MaxLength      int    `json:"max_length,omitempty"`
	Truncation     bool   `json:"truncation"`
	PadToMaxLength bool   `json:"pad_to_max_length"`
}

type decodeRequest struct {
	IDs               []int `json:"ids"`
	SkipSpecialTokens bool  `json:"skip_special_tokens"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

// Generate runs beam search on the server. The input is sent as a batch of one.
func (m *RemoteModel) Generate(ctx context.Context, enc *Encoding, opts Options) ([][]int, error) {
	req := generateRequest{
		Model:         m.name,
		InputIDs:      [][]int{enc.InputIDs},
		AttentionMask: [][]int{enc.AttentionMask},
		Options:       opts,
	}
	var resp generateResponse
	if err := m.post(ctx, "/generate", req, &resp); err != nil {
		return nil, err
	}
	return resp.Sequences, nil
}

// Encode tokenizes text with the server's tokenizer.
func (m *RemoteModel) Encode(text string, opts EncodeOptions) (*Encoding, error) {
	req := encodeRequest{
		Text:           text,
		MaxLength:      opts.MaxLength,
		Truncation:     opts.Truncate,
		PadToMaxLength: opts.PadToMaxLength,
	}
	var enc Encoding
	if err := m.post(context.Background(), "/encode", req, &enc); err != nil {
		return nil, err
	}
	if len(enc.InputIDs) != len(enc.AttentionMask) {
		return nil, fmt.Errorf("encode: %d ids but %d mask entries", len(enc.InputIDs), len(enc.AttentionMask))
	}
	return &enc, nil
}

// Decode converts ids back to text with the server's tokenizer.
func (m *RemoteModel) Decode(ids []int, opts DecodeOptions) (string, error) {
	var resp decodeResponse
	req := decodeRequest{IDs: ids, SkipSpecialTokens: opts.SkipSpecialTokens}
	if err := m.post(context.Background(), "/decode", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Ping checks that the server is up and has its model loaded.
func (m *RemoteModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server health check returned status: %d", resp.StatusCode)
	}
	return nil
}

func (m *RemoteModel) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: upstream returned status: %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
