package grpc

import (
	"context"
	"net/http"

	"github.com/vibast-solutions/ms-go-contact/app/dto"
	"github.com/vibast-solutions/ms-go-contact/app/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName  = "portfolio.contact.v1.ContactService"
	SubmitMethod = "/" + ServiceName + "/Submit"
)

// ContactServiceServer is the server API for the contact service. Requests
// and responses are google.protobuf.Struct values carrying the same fields
// as the HTTP JSON bodies.
type ContactServiceServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	delivery *service.DeliveryService
	reporter *service.Reporter
}

// NewServer constructs a gRPC server handler.
func NewServer(delivery *service.DeliveryService, reporter *service.Reporter) *Server {
	return &Server{delivery: delivery, reporter: reporter}
}

// Submit validates the submission and runs it through the delivery chain.
func (s *Server) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	msg := dto.FromStruct(req)
	if err := msg.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome := s.delivery.Deliver(ctx, msg)
	code, body := s.reporter.Report(outcome)
	if code != http.StatusOK {
		message := body.Error
		if body.Details != "" {
			message += ": " + body.Details
		}
		return nil, status.Error(codes.Internal, message)
	}

	return structpb.NewStruct(map[string]interface{}{
		"message": body.Message,
		"success": body.Success,
	})
}

// Register attaches srv to a gRPC service registrar.
func Register(registrar grpc.ServiceRegistrar, srv ContactServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func submitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContactServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ContactServiceServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the contact service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "portfolio/contact/v1/contact.proto",
}

// Client is a thin caller for the contact service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Submit sends name, email and message and returns the response fields.
func (c *Client) Submit(ctx context.Context, name, email, message string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"name":    name,
		"email":   email,
		"message": message,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SubmitMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
