package router

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// memberToProto encodes the id and address of a member as {id, addr}.
func memberToProto(m Member) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":   structpb.NewStringValue(m.ID),
			"addr": structpb.NewStringValue(m.Addr),
		},
	})
}

func membersToProto(members []Member) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(members))}
	for _, m := range members {
		list.Values = append(list.Values, memberToProto(m))
	}
	return list
}

func membersFromProto(list *structpb.ListValue) ([]Member, error) {
	members := make([]Member, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("member %d is not an object", i)
		}
		members = append(members, Member{
			ID:   s.GetFields()["id"].GetStringValue(),
			Addr: s.GetFields()["addr"].GetStringValue(),
		})
	}
	return members, nil
}

func pointsToProto(points []int) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(points))}
	for _, p := range points {
		list.Values = append(list.Values, structpb.NewNumberValue(float64(p)))
	}
	return list
}

func pointsFromProto(list *structpb.ListValue) ([]int, error) {
	points := make([]int, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		points = append(points, n)
	}
	return points, nil
}

// toInt reads a whole number from a JSON-style number value.
func toInt(v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("expected a number")
	}
	f := num.NumberValue
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected a whole number, got %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}

func lookupToProto(key string, count int) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"key":   structpb.NewStringValue(key),
			"count": structpb.NewNumberValue(float64(count)),
		},
	}
}

// lookupFromProto reads {key, count}. A missing count is 1.
func lookupFromProto(req *structpb.Struct) (string, int, error) {
	fields := req.GetFields()
	key := fields["key"].GetStringValue()

	count := 1
	if v, ok := fields["count"]; ok {
		n, err := toInt(v)
		if err != nil {
			return "", 0, fmt.Errorf("count: %w", err)
		}
		count = n
	}
	return key, count, nil
}

func addRequestToProto(m Member) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"id":   structpb.NewStringValue(m.ID),
		"addr": structpb.NewStringValue(m.Addr),
	}
	if m.Weight != 0 {
		fields["weight"] = structpb.NewNumberValue(float64(m.Weight))
	}
	if len(m.Points) > 0 {
		fields["points"] = structpb.NewListValue(pointsToProto(m.Points))
	}
	return &structpb.Struct{Fields: fields}
}

func addRequestFromProto(req *structpb.Struct) (Member, error) {
	fields := req.GetFields()
	m := Member{
		ID:   fields["id"].GetStringValue(),
		Addr: fields["addr"].GetStringValue(),
	}

	if v, ok := fields["weight"]; ok {
		w, err := toInt(v)
		if err != nil {
			return Member{}, fmt.Errorf("weight: %w", err)
		}
		m.Weight = w
	}
	if v, ok := fields["points"]; ok {
		points, err := pointsFromProto(v.GetListValue())
		if err != nil {
			return Member{}, fmt.Errorf("points: %w", err)
		}
		m.Points = points
	}
	return m, nil
}
