package router

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var paramPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

type route struct {
	method  string
	pattern string
	regex   *regexp.Regexp
	params  []string
	handler http.Handler
}

// Router matches method and path patterns such as /api/v1/logs/:seq.
type Router struct {
	routes []route
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{routes: make([]route, 0)}
}

// Register adds a handler function for method and pattern
func (r *Router) Register(method, pattern string, handler http.HandlerFunc) {
	r.Handle(method, pattern, handler)
}

// Handle adds a handler for method and pattern
func (r *Router) Handle(method, pattern string, handler http.Handler) {
	regex, params := compilePattern(pattern)
	r.routes = append(r.routes, route{
		method:  strings.ToUpper(method),
		pattern: pattern,
		regex:   regex,
		params:  params,
		handler: handler,
	})
}

// Match finds the handler for method and path. allowed lists the methods
// registered for path when no route matches the method.
func (r *Router) Match(method, path string) (handler http.Handler, params map[string]string, allowed []string) {
	method = strings.ToUpper(method)

	for _, rt := range r.routes {
		matches := rt.regex.FindStringSubmatch(path)
		if matches == nil {
			continue
		}
		if rt.method != method {
			allowed = append(allowed, rt.method)
			continue
		}

		params = make(map[string]string, len(rt.params))
		for i, name := range rt.params {
			value := matches[i+1]
			if decoded, err := url.PathUnescape(value); err == nil {
				value = decoded
			}
			params[name] = value
		}
		return rt.handler, params, nil
	}

	sort.Strings(allowed)
	return nil, nil, allowed
}

func compilePattern(pattern string) (*regexp.Regexp, []string) {
	var params []string
	expr := paramPattern.ReplaceAllStringFunc(regexp.QuoteMeta(pattern), func(match string) string {
		params = append(params, strings.TrimPrefix(match, ":"))
		return `([^/]+)`
	})
	expr = strings.ReplaceAll(expr, `\*`, `(.*)`)
	return regexp.MustCompile("^" + expr + "$"), params
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler, params, allowed := r.Match(req.Method, req.URL.Path)
	if handler == nil {
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		http.NotFound(w, req)
		return
	}

	if len(params) > 0 {
		req = req.WithContext(context.WithValue(req.Context(), paramsContextKey{}, params))
	}
	handler.ServeHTTP(w, req)
}

type paramsContextKey struct{}

// Param returns the path parameter value from request context
func Param(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	m, _ := r.Context().Value(paramsContextKey{}).(map[string]string)
	return m[name]
}
