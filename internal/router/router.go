// Package router implements C10: the single HTTP entry point that
// decodes the per-request URL config, detects and translates formats,
// moderates, forwards upstream, and streams or transforms the response
// back (ServeHTTP -> decode config -> detect -> moderate -> transform ->
// forward -> handle streaming/non-streaming), following the dispatch sequence
// §4.1 describes.
package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/guardianbridge/gbridge/internal/adapters"
	"github.com/guardianbridge/gbridge/internal/gbridgeerr"
	"github.com/guardianbridge/gbridge/internal/moderation"
	"github.com/guardianbridge/gbridge/internal/neutral"
	"github.com/guardianbridge/gbridge/internal/streamvalidator"
	"github.com/guardianbridge/gbridge/internal/upstream"
	"github.com/guardianbridge/gbridge/internal/urlconfig"
)

// Router is the gateway's single http.Handler, serving every path that
// matches the "/" <config-token> "$" <upstream> grammar.
type Router struct {
	registry   *adapters.Registry
	moderation *moderation.Engine
	upstream   *upstream.Client
	logger     *slog.Logger
}

// New builds a Router over the given adapter registry, moderation
// engine, and upstream client.
func New(registry *adapters.Registry, mod *moderation.Engine, upstreamClient *upstream.Client, logger *slog.Logger) *Router {
	return &Router{registry: registry, moderation: mod, upstream: upstreamClient, logger: logger}
}

// ServeHTTP implements the nine-step dispatch sequence of §4.1.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := rt.logger.With("request_id", requestID)

	// Step 1: parse path.
	decoded, err := urlconfig.Decode(r.URL.RequestURI())
	if err != nil {
		logger.Warn("path grammar error", "error", err)
		gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.ConfigDecodeError, "malformed request path", err))
		return
	}

	// Step 2: read body once.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.InternalError, "read request body", err))
		return
	}

	var bodyJSON map[string]any
	isJSON := json.Unmarshal(rawBody, &bodyJSON) == nil && bodyJSON != nil
	if !isJSON {
		rt.forwardOpaque(w, r, decoded.UpstreamURL, rawBody, logger)
		return
	}

	ft := decoded.Config.FormatTransform
	var (
		sourceAdapter adapters.Adapter
		targetAdapter adapters.Adapter
		neutralReq    *neutral.ChatRequest
	)

	if ft.Enabled {
		candidates, err := candidateDialects(ft, rt.registry)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.ConfigDecodeError, "invalid format_transform.from", err))
			return
		}

		headers := headerMap(r.Header)
		adapter, ok := rt.registry.Detect(candidates, r.URL.Path, headers, bodyJSON)
		if !ok {
			if ft.StrictParse {
				gbridgeerr.WriteTo(w, gbridgeerr.New(gbridgeerr.FormatDetectError, "no adapter matched request"))
				return
			}
			rt.forwardOpaque(w, r, decoded.UpstreamURL, rawBody, logger)
			return
		}
		sourceAdapter = adapter

		if ft.DisableTools && hasToolsFields(bodyJSON) {
			gbridgeerr.WriteTo(w, gbridgeerr.New(gbridgeerr.ToolsDisabled, "request contains tools-related fields"))
			return
		}

		neutralReq, err = adapter.RequestToNeutral(bodyJSON)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.FormatDetectError, "parse request into neutral model", err))
			return
		}

		targetAdapter = adapter
		if ft.To != "" {
			if a, ok := rt.registry.Get(adapters.Dialect(ft.To)); ok {
				targetAdapter = a
			}
		}
		if ft.DisableTools && neutralReq.HasToolActivity() {
			gbridgeerr.WriteTo(w, gbridgeerr.New(gbridgeerr.ToolsDisabled, "request contains tools-related fields"))
			return
		}
	}

	// Step 4/5/6: moderation, only when format transform produced a
	// neutral model to extract text from.
	if neutralReq != nil {
		text := neutralReq.ExtractModerationText()
		decision, err := rt.moderation.Moderate(r.Context(), moderation.Request{
			Text:           text,
			BasicEnabled:   decoded.Config.BasicModeration.Enabled,
			KeywordsFile:   decoded.Config.BasicModeration.KeywordsFile,
			BasicErrorCode: decoded.Config.BasicModeration.ErrorCode,
			SmartEnabled:   decoded.Config.SmartModeration.Enabled,
			ProfileName:    decoded.Config.SmartModeration.Profile,
		})
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.InternalError, "moderation engine failure", err))
			return
		}
		if decision.Blocked {
			logger.Info("request blocked", "code", decision.ErrorCode, "source", decision.Source)
			gbridgeerr.WriteTo(w, gbridgeerr.New(gbridgeerr.Kind(decision.ErrorCode), decision.Reason))
			return
		}
	}

	// Step 7: render target request, forward headers.
	forwardBody := rawBody
	if targetAdapter != nil {
		rendered, err := targetAdapter.NeutralToRequest(neutralReq)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.FormatDetectError, "render request for target dialect", err))
			return
		}
		forwardBody, err = json.Marshal(rendered)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.InternalError, "marshal forwarded request", err))
			return
		}
	}

	streaming := resolveStreaming(ft, bodyJSON)

	if streaming {
		rt.forwardStreaming(w, r, decoded.UpstreamURL, forwardBody, logger)
		return
	}
	rt.forwardNonStreaming(w, r, decoded.UpstreamURL, forwardBody, sourceAdapter, targetAdapter, logger)
}

func (rt *Router) forwardOpaque(w http.ResponseWriter, r *http.Request, upstreamURL string, body []byte, logger *slog.Logger) {
	resp, err := rt.upstream.Forward(r.Context(), r.Method, upstreamURL, r.Header, body)
	if err != nil {
		logger.Error("upstream forward failed", "error", err)
		gbridgeerr.WriteTo(w, err)
		return
	}
	writeUpstreamResponse(w, resp)
}

func (rt *Router) forwardNonStreaming(w http.ResponseWriter, r *http.Request, upstreamURL string, body []byte, sourceAdapter, targetAdapter adapters.Adapter, logger *slog.Logger) {
	resp, err := rt.upstream.Forward(r.Context(), r.Method, upstreamURL, r.Header, body)
	if err != nil {
		logger.Error("upstream forward failed", "error", err)
		gbridgeerr.WriteTo(w, err)
		return
	}

	// Step 9: translate response back when source != target dialect.
	if sourceAdapter != nil && targetAdapter != nil && sourceAdapter.Dialect() != targetAdapter.Dialect() && resp.Body != nil {
		neutralResp, err := targetAdapter.ResponseToNeutral(resp.Body)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.ResponseTransformError, "parse upstream response", err))
			return
		}
		rendered, err := sourceAdapter.NeutralToResponse(neutralResp)
		if err != nil {
			gbridgeerr.WriteTo(w, gbridgeerr.Wrap(gbridgeerr.ResponseTransformError, "render response for client dialect", err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_ = json.NewEncoder(w).Encode(rendered)
		return
	}

	writeUpstreamResponse(w, resp)
}

// forwardStreaming forwards the request and gates the response through
// C9 before writing any bytes to the client.
func (rt *Router) forwardStreaming(w http.ResponseWriter, r *http.Request, upstreamURL string, body []byte, logger *slog.Logger) {
	resp, reader, err := rt.upstream.StreamForward(r.Context(), r.Method, upstreamURL, r.Header, body)
	if err != nil {
		logger.Error("upstream stream forward failed", "error", err)
		gbridgeerr.WriteTo(w, err)
		return
	}
	defer resp.Body.Close()

	flusher, _ := w.(http.Flusher)
	validator := streamvalidator.New[[]byte]()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")

	headersSent := false
	sendHeaders := func(status int) {
		if !headersSent {
			w.WriteHeader(status)
			headersSent = true
		}
	}

	scanner := newSSEScanner(reader)
	for scanner.Scan() {
		frame := scanner.Bytes()
		deltaText, startsToolCall := extractStreamSignal(frame)

		emit, open := validator.Feed(frame, deltaText, startsToolCall)
		if !open {
			continue
		}
		sendHeaders(resp.StatusCode)
		for _, chunk := range emit {
			w.Write(chunk)
			w.Write([]byte("\n\n"))
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("stream read error", "error", err)
	}

	if !validator.Committed() {
		gbridgeerr.WriteTo(w, gbridgeerr.New(gbridgeerr.StreamEmptyError, "upstream closed before stream committed"))
		return
	}
}

func writeUpstreamResponse(w http.ResponseWriter, resp *upstream.Response) {
	for k, vs := range resp.Header {
		if isHopByHopResponseHeader(k) {
			continue
		}
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.RawBody)
}

func isHopByHopResponseHeader(k string) bool {
	switch strings.ToLower(k) {
	case "content-length", "content-encoding", "transfer-encoding", "connection":
		return true
	default:
		return false
	}
}

func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func hasToolsFields(body map[string]any) bool {
	for _, key := range []string{"tools", "tool_choice", "tool_call", "tool_result"} {
		if v, ok := body[key]; ok && v != nil {
			return true
		}
	}
	return false
}

func candidateDialects(ft urlconfig.FormatTransform, registry *adapters.Registry) ([]adapters.Dialect, error) {
	names, err := ft.FromDialects()
	if err != nil {
		return nil, err
	}

	var candidates []adapters.Dialect
	if names == nil {
		candidates = append(candidates, adapters.DetectionOrder...)
	} else {
		for _, n := range names {
			candidates = append(candidates, adapters.Dialect(n))
		}
	}

	if ft.DisableTools {
		candidates = excludeDialects(candidates, adapters.ClaudeCode, adapters.OpenAICodex)
	}
	return candidates, nil
}

func excludeDialects(in []adapters.Dialect, exclude ...adapters.Dialect) []adapters.Dialect {
	excluded := make(map[adapters.Dialect]bool, len(exclude))
	for _, d := range exclude {
		excluded[d] = true
	}
	var out []adapters.Dialect
	for _, d := range in {
		if !excluded[d] {
			out = append(out, d)
		}
	}
	return out
}

func resolveStreaming(ft urlconfig.FormatTransform, body map[string]any) bool {
	mode, err := ft.Resolve()
	if err != nil {
		mode = urlconfig.StreamAuto
	}
	switch mode {
	case urlconfig.StreamForceOn:
		return true
	case urlconfig.StreamForceOff:
		return false
	default:
		stream, _ := body["stream"].(bool)
		return stream
	}
}
