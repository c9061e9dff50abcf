// Package urlconfig decodes the C10 request router's path grammar:
// "/" <config-token> "$" <upstream-base-and-path>, per §4.1/§6.
package urlconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// BasicModeration mirrors the basic_moderation.* URL config keys.
type BasicModeration struct {
	Enabled      bool   `json:"enabled"`
	KeywordsFile string `json:"keywords_file"`
	ErrorCode    string `json:"error_code"`
}

// SmartModeration mirrors the smart_moderation.* URL config keys.
type SmartModeration struct {
	Enabled bool   `json:"enabled"`
	Profile string `json:"profile"`
}

// FormatTransform mirrors the format_transform.* URL config keys. From
// holds either "auto", one dialect name, or a list of dialect names;
// Stream holds either "auto" or a bool, so it is decoded into RawStream
// and resolved by the caller.
type FormatTransform struct {
	Enabled      bool            `json:"enabled"`
	From         json.RawMessage `json:"from"`
	To           string          `json:"to"`
	RawStream    json.RawMessage `json:"stream"`
	StrictParse  bool            `json:"strict_parse"`
	DisableTools bool            `json:"disable_tools"`
}

// Config is the decoded URL configuration object (per §6).
type Config struct {
	BasicModeration BasicModeration `json:"basic_moderation"`
	SmartModeration SmartModeration `json:"smart_moderation"`
	FormatTransform FormatTransform `json:"format_transform"`
}

// Decoded is the result of splitting and decoding one request path.
type Decoded struct {
	Config      Config
	UpstreamURL string
}

// Decode splits rawPathAndQuery (the request's raw, still-encoded path
// plus query string, leading "/" included) on its first unescaped "$"
// into a config token and an upstream URL, then decodes the token.
func Decode(rawPathAndQuery string) (Decoded, error) {
	trimmed := strings.TrimPrefix(rawPathAndQuery, "/")

	idx := strings.IndexByte(trimmed, '$')
	if idx < 0 {
		return Decoded{}, fmt.Errorf("missing '$' separator in path")
	}
	tokenPart := trimmed[:idx]
	upstreamPart := trimmed[idx+1:]
	if upstreamPart == "" {
		return Decoded{}, fmt.Errorf("empty upstream url")
	}

	raw, err := resolveToken(tokenPart)
	if err != nil {
		return Decoded{}, err
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Decoded{}, fmt.Errorf("parse config json: %w", err)
	}

	return Decoded{Config: cfg, UpstreamURL: upstreamPart}, nil
}

// resolveToken loads the raw JSON document a config-token refers to:
// "!ENV_VAR_NAME" reads it from the environment, anything else is
// treated as a URL-encoded JSON document.
func resolveToken(token string) ([]byte, error) {
	if strings.HasPrefix(token, "!") {
		envName := token[1:]
		val, ok := os.LookupEnv(envName)
		if !ok {
			return nil, fmt.Errorf("environment variable %s not set", envName)
		}
		return []byte(val), nil
	}

	decoded, err := url.QueryUnescape(token)
	if err != nil {
		return nil, fmt.Errorf("url-decode config token: %w", err)
	}
	return []byte(decoded), nil
}

// StreamMode resolves format_transform.stream: "auto" follows the
// request body's own stream field, otherwise ft.RawStream is a literal
// bool.
type StreamMode int

const (
	StreamAuto StreamMode = iota
	StreamForceOn
	StreamForceOff
)

// Resolve decodes RawStream into a StreamMode.
func (ft FormatTransform) Resolve() (StreamMode, error) {
	if len(ft.RawStream) == 0 {
		return StreamAuto, nil
	}
	var asString string
	if err := json.Unmarshal(ft.RawStream, &asString); err == nil {
		if asString == "auto" {
			return StreamAuto, nil
		}
		return StreamAuto, fmt.Errorf("invalid format_transform.stream value %q", asString)
	}
	var asBool bool
	if err := json.Unmarshal(ft.RawStream, &asBool); err == nil {
		if asBool {
			return StreamForceOn, nil
		}
		return StreamForceOff, nil
	}
	return StreamAuto, fmt.Errorf("invalid format_transform.stream value")
}

// FromDialects decodes FormatTransform.From into a dialect name list;
// "auto" (or absence) yields nil, meaning the full detection order
// applies.
func (ft FormatTransform) FromDialects() ([]string, error) {
	if len(ft.From) == 0 {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(ft.From, &asString); err == nil {
		if asString == "auto" || asString == "" {
			return nil, nil
		}
		return []string{asString}, nil
	}
	var asList []string
	if err := json.Unmarshal(ft.From, &asList); err == nil {
		return asList, nil
	}
	return nil, fmt.Errorf("invalid format_transform.from value")
}
