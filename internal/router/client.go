package router

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the hashring.v1.Ring service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Lookup returns up to count distinct members for key, primary first.
func (c *Client) Lookup(ctx context.Context, key string, count int, opts ...grpc.CallOption) ([]Member, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, lookupMethod, lookupToProto(key, count), out, opts...); err != nil {
		return nil, err
	}
	members, err := membersFromProto(out)
	if err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	return members, nil
}

// AddMember adds one ring entry for m.
func (c *Client) AddMember(ctx context.Context, m Member, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, addMemberMethod, addRequestToProto(m), new(emptypb.Empty), opts...)
}

// RemoveMember removes every entry for id.
func (c *Client) RemoveMember(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, removeMemberMethod, wrapperspb.String(id), new(emptypb.Empty), opts...)
}

// ListMembers returns one member per ring entry.
func (c *Client) ListMembers(ctx context.Context, opts ...grpc.CallOption) ([]Member, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, listMembersMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	members, err := membersFromProto(out)
	if err != nil {
		return nil, fmt.Errorf("decode member list: %w", err)
	}
	return members, nil
}

// MemberPoints returns the control points owned by id.
func (c *Client) MemberPoints(ctx context.Context, id string, opts ...grpc.CallOption) ([]int, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, memberPointsMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	points, err := pointsFromProto(out)
	if err != nil {
		return nil, fmt.Errorf("decode points: %w", err)
	}
	return points, nil
}
