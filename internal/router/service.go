package router

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"hashring/internal/ring"
)

const serviceName = "hashring.v1.Ring"

// Full method names of the hashring.v1.Ring service.
const (
	lookupMethod       = "/" + serviceName + "/Lookup"
	addMemberMethod    = "/" + serviceName + "/AddMember"
	removeMemberMethod = "/" + serviceName + "/RemoveMember"
	listMembersMethod  = "/" + serviceName + "/ListMembers"
	memberPointsMethod = "/" + serviceName + "/MemberPoints"
)

// RingServer is the server API for the hashring.v1.Ring service. Messages
// are protobuf well-known types so the default codec carries them as is.
type RingServer interface {
	// Lookup takes {key, count} and returns a list of {id, addr}.
	Lookup(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	// AddMember takes {id, addr, weight, points}.
	AddMember(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RemoveMember(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ListMembers(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	MemberPoints(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// RegisterRingServer registers srv with s.
func RegisterRingServer(s grpc.ServiceRegistrar, srv RingServer) {
	s.RegisterService(&ringServiceDesc, srv)
}

var ringServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler: unaryHandler(lookupMethod, newStruct,
				func(s RingServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
					return s.Lookup(ctx, in)
				}),
		},
		{
			MethodName: "AddMember",
			Handler: unaryHandler(addMemberMethod, newStruct,
				func(s RingServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
					return s.AddMember(ctx, in)
				}),
		},
		{
			MethodName: "RemoveMember",
			Handler: unaryHandler(removeMemberMethod, newStringValue,
				func(s RingServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
					return s.RemoveMember(ctx, in)
				}),
		},
		{
			MethodName: "ListMembers",
			Handler: unaryHandler(listMembersMethod, newEmpty,
				func(s RingServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
					return s.ListMembers(ctx, in)
				}),
		},
		{
			MethodName: "MemberPoints",
			Handler: unaryHandler(memberPointsMethod, newStringValue,
				func(s RingServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
					return s.MemberPoints(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hashring/v1/ring.proto",
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newStringValue() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

// unaryHandler decodes the request and runs call through the server's
// interceptor chain, the same way generated service code does.
func unaryHandler[Req proto.Message](
	fullMethod string,
	newReq func() Req,
	call func(RingServer, context.Context, Req) (proto.Message, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RingServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements RingServer on top of a Router.
type Server struct {
	router *Router
	name   string
}

// NewServer creates a gRPC service for rt. name prefixes log lines.
func NewServer(rt *Router, name string) *Server {
	return &Server{
		router: rt,
		name:   name,
	}
}

// Lookup handles Lookup requests.
func (s *Server) Lookup(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	key, count, err := lookupFromProto(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid lookup request: %v", err)
	}
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	members := s.router.Lookup(key, count)
	log.Printf("[%s] Lookup request: key=%s, count=%d, found=%d", s.name, key, count, len(members))
	return membersToProto(members), nil
}

// AddMember handles AddMember requests.
func (s *Server) AddMember(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	m, err := addRequestFromProto(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid member: %v", err)
	}
	log.Printf("[%s] AddMember request: id=%s, addr=%s, weight=%d, points=%d",
		s.name, m.ID, m.Addr, m.Weight, len(m.Points))

	if err := s.router.AddMember(m); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// RemoveMember handles RemoveMember requests. Unknown ids are not an error.
func (s *Server) RemoveMember(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id := req.GetValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "member id cannot be empty")
	}

	removed := s.router.RemoveMember(id)
	log.Printf("[%s] RemoveMember request: id=%s, removed=%v", s.name, id, removed)
	return &emptypb.Empty{}, nil
}

// ListMembers handles ListMembers requests.
func (s *Server) ListMembers(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return membersToProto(s.router.Members()), nil
}

// MemberPoints handles MemberPoints requests.
func (s *Server) MemberPoints(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	id := req.GetValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "member id cannot be empty")
	}

	points, ok := s.router.MemberPoints(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "member %s not found", id)
	}
	return pointsToProto(points), nil
}

// toStatus maps router and ring errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrInvalidMember):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrAddrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ring.ErrPointExhaustion):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
