package grpcclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// SendDataMethod es el RPC unario del servicio de reenvío.
const SendDataMethod = "/forwarder.Forwarder/SendData"

const sendTimeout = 5 * time.Second

type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient prepara la conexión (perezosa) hacia addr. opts se añaden a las de
// por defecto (sin TLS).
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

// SendData reenvía un objeto de tracking como google.protobuf.Struct.
func (g *GRPCClient) SendData(ctx context.Context, deviceID string, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["device_id"] = deviceID

	req, err := structpb.NewStruct(body)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", deviceID, err)
	}
	if err := g.conn.Invoke(ctx, SendDataMethod, req, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("forward %s: %w", deviceID, err)
	}
	return nil
}
