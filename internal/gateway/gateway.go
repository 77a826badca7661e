package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tavern-client/internal/domain"
	"tavern-client/internal/navigation"
)

// DefaultTimeout es el presupuesto fijo de cada llamada.
const DefaultTimeout = 60 * time.Second

const maxBodyBytes = 4 << 20

// TokenSource entrega el token vigente al momento de enviar.
type TokenSource interface {
	CurrentToken() (string, bool)
}

type TokenSourceFunc func() (string, bool)

func (f TokenSourceFunc) CurrentToken() (string, bool) { return f() }

// Notifier recibe los toasts del stage de respuesta.
type Notifier interface {
	Push(spec domain.NotificationSpec) string
}

// HTTPDoer es el transporte; *http.Client lo satisface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response es una respuesta 2xx con el body ya leido.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode deserializa el body JSON en out.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Gateway es el unico punto de salida hacia el backend. Agrega el bearer
// token a cada request y traduce cada respuesta en toasts.
type Gateway struct {
	logger         *zap.Logger
	baseURL        string
	timeout        time.Duration
	client         HTTPDoer
	tokens         TokenSource
	notifier       Notifier
	navigator      navigation.Emitter
	onUnauthorized func(ctx context.Context)
	breaker        *gobreaker.CircuitBreaker
	limiter        *rate.Limiter
	metrics        *Metrics
	tracer         trace.Tracer
}

type Option func(*Gateway)

func WithHTTPClient(c HTTPDoer) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(g *Gateway) { g.tokens = ts }
}

func WithNotifier(n Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithNavigator recibe el intent de ir a login ante un 401.
func WithNavigator(e navigation.Emitter) Option {
	return func(g *Gateway) { g.navigator = e }
}

// WithUnauthorizedHandler se ejecuta ante cada 401, antes del redirect.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(g *Gateway) { g.onUnauthorized = fn }
}

// WithCircuitBreaker corta las llamadas tras threshold fallas consecutivas
// de transporte o 5xx, durante timeout.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(g *Gateway) {
		g.breaker = newBreaker(g.logger, "gateway", threshold, timeout)
	}
}

// WithRateLimit limita las llamadas salientes. rps <= 0 lo deshabilita.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		if t != nil {
			g.tracer = t
		}
	}
}

// New construye el gateway. baseURL es el origen mas el prefijo de la API.
func New(logger *zap.Logger, baseURL string, timeout time.Duration, opts ...Option) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Gateway{
		logger:  logger,
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("tavern-client/gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Get hace GET path y deserializa la respuesta en out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	resp, err := g.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Post hace POST path con in como JSON y deserializa la respuesta en out.
func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	resp, err := g.Do(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Do envia la llamada por el pipeline completo. Las fallas se notifican y
// luego se devuelven como *RequestError.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "gateway.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := g.newRequest(ctx, method, path, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := g.send(req)
	if err != nil {
		reqErr := classify(method, path, 0, nil, err, g.timeout)
		g.reject(ctx, reqErr)
		span.SetStatus(codes.Error, string(reqErr.Kind))
		g.metrics.observe(method, string(reqErr.Kind), time.Since(start))
		return nil, reqErr
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))

	if resp.Status < 200 || resp.Status > 299 {
		reqErr := classify(method, path, resp.Status, resp.Body, nil, g.timeout)
		g.reject(ctx, reqErr)
		span.SetStatus(codes.Error, string(reqErr.Kind))
		g.metrics.observe(method, string(reqErr.Kind), time.Since(start))
		return nil, reqErr
	}

	if msg := successMessage(resp.Body); msg != "" {
		g.push(domain.NotificationSpec{Title: "Success", Message: msg, Kind: domain.KindSuccess})
	}
	g.logger.Debug("backend call succeeded",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.Status),
	)
	g.metrics.observe(method, "success", time.Since(start))
	return resp, nil
}

// newRequest es el stage de salida: headers y bearer token. No falla por
// ausencia de token.
func (g *Gateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.tokens != nil {
		if token, ok := g.tokens.CurrentToken(); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (g *Gateway) url(path string) string {
	return g.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (g *Gateway) send(req *http.Request) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if g.breaker == nil {
		return g.roundTrip(req)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.roundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if resp, ok := out.(*Response); ok && resp != nil {
		return resp, nil
	}
	return nil, err
}

func (g *Gateway) roundTrip(req *http.Request) (*Response, error) {
	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}, nil
}

// reject es el stage de respuesta para fallas: un toast por mensaje y, ante
// un 401, invalidacion de la sesion y redirect forzado a login.
func (g *Gateway) reject(ctx context.Context, reqErr *RequestError) {
	g.logger.Warn("backend call failed",
		zap.String("method", reqErr.Method),
		zap.String("path", reqErr.Path),
		zap.Int("status", reqErr.Status),
		zap.String("kind", string(reqErr.Kind)),
		zap.Error(errors.Unwrap(reqErr)),
	)

	for _, msg := range reqErr.Messages {
		g.push(domain.NotificationSpec{Title: "Error", Message: msg, Kind: domain.KindError})
	}

	if reqErr.Status == http.StatusUnauthorized {
		if g.onUnauthorized != nil {
			g.onUnauthorized(context.WithoutCancel(ctx))
		}
		if g.navigator != nil {
			g.navigator.Emit(navigation.Intent{Target: navigation.LoginRoute, Hard: true})
		}
	}
}

func (g *Gateway) push(spec domain.NotificationSpec) {
	if g.notifier == nil {
		return
	}
	g.notifier.Push(spec)
}
