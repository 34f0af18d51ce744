package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCConn is a pooled gRPC client connection. Use Conn with generated
// clients.
type GRPCConn struct {
	name    string
	service string
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
}

// DialGRPC opens a client connection to ep. An https:// scheme or :443 port
// selects TLS.
func DialGRPC(ctx context.Context, ep Endpoint) (*GRPCConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := ep.URL
	var opts []grpc.DialOption

	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}
	conn.Connect()

	return &GRPCConn{
		name:    ep.Name,
		service: ep.HealthPath,
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
	}, nil
}

// Conn returns the underlying client connection.
func (c *GRPCConn) Conn() *grpc.ClientConn {
	return c.conn
}

// Ping runs a standard health check against the configured service.
func (c *GRPCConn) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc service %q is %s: service unavailable", c.service, resp.GetStatus())
	}
	return nil
}

// Close closes the client connection.
func (c *GRPCConn) Close() error {
	return c.conn.Close()
}
