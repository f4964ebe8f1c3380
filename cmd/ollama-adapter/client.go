package main

import (
	"fmt"

	"github.com/a2aproject/a2a-go/a2aclient"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PeerConnection holds the gRPC connection to a peer adapter.
type PeerConnection struct {
	addr string
	conn *grpc.ClientConn
}

// ConnectToPeer creates a client connection to a peer. The connection is
// established lazily on first use.
func ConnectToPeer(peerAddr string) (*PeerConnection, error) {
	conn, err := grpc.NewClient(
		peerAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	return &PeerConnection{
		addr: peerAddr,
		conn: conn,
	}, nil
}

// A2ATransport returns an A2A transport for sending messages.
func (pc *PeerConnection) A2ATransport() a2aclient.Transport {
	return a2aclient.NewGRPCTransport(pc.conn)
}

// HealthClient returns a client for the peer's health service.
func (pc *PeerConnection) HealthClient() healthpb.HealthClient {
	return healthpb.NewHealthClient(pc.conn)
}

// Close closes the connection.
func (pc *PeerConnection) Close() {
	if pc.conn != nil {
		pc.conn.Close()
	}
}
