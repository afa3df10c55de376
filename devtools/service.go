// Package devtools provides system methods mounted next to a host: a
// heartbeat, runtime information and method discovery.
package devtools

import (
	"context"
	"runtime"
	"strconv"

	"github.com/broady/surface"
	"github.com/broady/surface/surfacegen/provider"
)

// Service provides the system methods. Register it on an App:
//
//	app := surface.NewApp()
//	devtools.New(app, version).Register()
type Service struct {
	app     *surface.App
	version string
}

// New creates a devtools service reporting version.
func New(app *surface.App, version string) *Service {
	return &Service{app: app, version: version}
}

// Decls declares the service's methods.
func Decls() []provider.MethodDecl {
	return []provider.MethodDecl{
		{Name: "ping", Func: (*Service).Ping, Doc: "Heartbeat."},
		{Name: "get_system_info", Func: (*Service).GetSystemInfo, Doc: "Returns runtime information about the server."},
		{Name: "status", Func: (*Service).Status, Doc: "Returns server status and the mounted methods."},
	}
}

// Register mounts the service on its app.
func (s *Service) Register() error {
	t, err := surface.Bind(s, Decls())
	if err != nil {
		return err
	}
	s.app.Mount(t)
	return nil
}

// PingResponse is the response of ping.
type PingResponse struct {
	OK bool `json:"ok"`
}

// Ping is a simple health check.
func (s *Service) Ping(ctx context.Context) PingResponse {
	return PingResponse{OK: true}
}

// GetSystemInfo returns runtime information about the server.
func (s *Service) GetSystemInfo(ctx context.Context) map[string]string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]string{
		"version":     s.version,
		"go_version":  runtime.Version(),
		"goroutines":  strconv.Itoa(runtime.NumGoroutine()),
		"num_cpu":     strconv.Itoa(runtime.NumCPU()),
		"alloc":       strconv.FormatUint(m.Alloc, 10),
		"total_alloc": strconv.FormatUint(m.TotalAlloc, 10),
		"sys":         strconv.FormatUint(m.Sys, 10),
		"num_gc":      strconv.FormatUint(uint64(m.NumGC), 10),
	}
}

// StatusResponse provides server status and method discovery.
type StatusResponse struct {
	// OK indicates the server is healthy.
	OK bool `json:"ok"`
	// Methods lists the mounted wire names in mount order.
	Methods []string `json:"methods"`
}

// Status returns server status and the mounted methods.
func (s *Service) Status(ctx context.Context) StatusResponse {
	contracts := s.app.Contracts()
	methods := make([]string, len(contracts))
	for i, c := range contracts {
		methods[i] = c.Name
	}
	return StatusResponse{OK: true, Methods: methods}
}
