package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// IsLambda reports whether the process runs inside AWS Lambda.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// LambdaHandler adapts an http.Handler to API Gateway HTTP API (payload v2)
// events. Binary request bodies arrive base64-encoded; response bodies are
// always returned base64-encoded so compressed output survives.
func LambdaHandler(h http.Handler) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		req, err := requestFromEvent(ctx, event)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest}, nil
		}

		rw := newLambdaResponseWriter()
		h.ServeHTTP(rw, req)

		headers := make(map[string]string, len(rw.header))
		var cookies []string
		for name, values := range rw.header {
			if strings.EqualFold(name, "Set-Cookie") {
				cookies = append(cookies, values...)
				continue
			}
			headers[name] = strings.Join(values, ",")
		}

		return events.APIGatewayV2HTTPResponse{
			StatusCode:      rw.status,
			Headers:         headers,
			Cookies:         cookies,
			Body:            base64.StdEncoding.EncodeToString(rw.body.Bytes()),
			IsBase64Encoded: true,
		}, nil
	}
}

func requestFromEvent(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	// RawPath is still percent-encoded; the URL keeps it next to the
	// decoded Path so an escaped "/" (%2F) stays inside its segment.
	rawPath := event.RawPath
	if rawPath == "" {
		rawPath = event.RequestContext.HTTP.Path
	}
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, err
	}
	u := &url.URL{Path: path, RawQuery: event.RawQueryString}
	if path != rawPath {
		u.RawPath = rawPath
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for name, value := range event.Headers {
		req.Header.Set(name, value)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	if req.Header.Get("X-Request-Id") == "" && event.RequestContext.RequestID != "" {
		req.Header.Set("X-Request-Id", event.RequestContext.RequestID)
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.Host = event.RequestContext.DomainName
	return req, nil
}

type lambdaResponseWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newLambdaResponseWriter() *lambdaResponseWriter {
	return &lambdaResponseWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *lambdaResponseWriter) Header() http.Header { return w.header }

func (w *lambdaResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
}

func (w *lambdaResponseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.body.Write(b)
}
