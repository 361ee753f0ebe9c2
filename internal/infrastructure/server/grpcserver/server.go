package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/poly-workshop/go-webmods/grpcutils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "gemini-gateway"

// Server exposes grpc.health.v1 for orchestrators that probe over gRPC.
type Server struct {
	listenAddr string
	s          *grpc.Server
	health     *health.Server
	lis        net.Listener
}

func New(listenAddr string) (*Server, error) {
	if listenAddr == "" {
		return nil, fmt.Errorf("grpc listen address is empty")
	}

	unaryInts := grpc.ChainUnaryInterceptor(
		grpcutils.BuildRequestIDInterceptor(),
		grpcutils.BuildLogInterceptor(slog.Default()),
	)

	s := grpc.NewServer(unaryInts)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)

	return &Server{listenAddr: listenAddr, s: s, health: hs}, nil
}

// SetServing flips both the overall and the named service status.
func (srv *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	srv.health.SetServingStatus("", st)
	srv.health.SetServingStatus(ServiceName, st)
}

func (srv *Server) Start() error {
	lis, err := net.Listen("tcp", srv.listenAddr)
	if err != nil {
		return err
	}
	return srv.Serve(lis)
}

func (srv *Server) Serve(lis net.Listener) error {
	srv.lis = lis
	srv.SetServing(true)
	slog.Info("grpc health listening", "addr", lis.Addr().String())
	return srv.s.Serve(lis)
}

func (srv *Server) Stop(ctx context.Context) error {
	if srv.s == nil {
		return nil
	}
	srv.health.Shutdown()

	done := make(chan struct{})
	go func() {
		srv.s.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		srv.s.Stop()
		return ctx.Err()
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		srv.s.Stop()
		return fmt.Errorf("grpc graceful stop timed out")
	}
}
