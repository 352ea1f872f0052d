package journal

import (
	"encoding/json"
	"fmt"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// The payload is a stable tagged JSON encoding of the entry variants.
// Values carry an explicit kind tag so an Int and a Float with the same
// magnitude survive a round trip unchanged, and so Null is
// distinguishable from an absent attribute.

type wireValue struct {
	K string  `json:"k"`
	B bool    `json:"b,omitempty"`
	I int64   `json:"i,omitempty"`
	F float64 `json:"f,omitempty"`
	S string  `json:"s,omitempty"`
}

type wireEntity struct {
	Node uint64 `json:"n,omitempty"`
	Edge uint64 `json:"e,omitempty"`
	Kind string `json:"k"`
}

type wirePayload struct {
	Txn      uint64                `json:"txn,omitempty"`
	Node     uint64                `json:"node,omitempty"`
	NodeType uint32                `json:"node_type,omitempty"`
	Edge     uint64                `json:"edge,omitempty"`
	EdgeType uint32                `json:"edge_type,omitempty"`
	Targets  []wireEntity          `json:"targets,omitempty"`
	Attrs    map[string]wireValue  `json:"attrs,omitempty"`
	Entity   *wireEntity           `json:"entity,omitempty"`
	Attr     string                `json:"attr,omitempty"`
	Old      *wireValue            `json:"old,omitempty"`
	HadOld   bool                  `json:"had_old,omitempty"`
	New      *wireValue            `json:"new,omitempty"`
	LastLSN  uint64                `json:"last_lsn,omitempty"`
}

func encodeValue(v hvalue.Value) wireValue {
	switch v.Kind() {
	case hvalue.KindNull:
		return wireValue{K: "null"}
	case hvalue.KindBool:
		b, _ := v.Bool()
		return wireValue{K: "bool", B: b}
	case hvalue.KindInt:
		i, _ := v.Int()
		return wireValue{K: "int", I: i}
	case hvalue.KindFloat:
		f, _ := v.Float()
		return wireValue{K: "float", F: f}
	case hvalue.KindString:
		s, _ := v.String()
		return wireValue{K: "string", S: s}
	case hvalue.KindTimestamp:
		ms, _ := v.TimestampMillis()
		return wireValue{K: "timestamp", I: ms}
	case hvalue.KindDuration:
		ms, _ := v.DurationMillis()
		return wireValue{K: "duration", I: ms}
	case hvalue.KindNodeRef:
		id, _ := v.NodeRef()
		return wireValue{K: "node_ref", I: int64(id)}
	case hvalue.KindEdgeRef:
		id, _ := v.EdgeRef()
		return wireValue{K: "edge_ref", I: int64(id)}
	default:
		return wireValue{K: "null"}
	}
}

func decodeValue(w wireValue) (hvalue.Value, error) {
	switch w.K {
	case "null":
		return hvalue.Null, nil
	case "bool":
		return hvalue.NewBool(w.B), nil
	case "int":
		return hvalue.NewInt(w.I), nil
	case "float":
		return hvalue.NewFloat(w.F), nil
	case "string":
		return hvalue.NewString(w.S), nil
	case "timestamp":
		return hvalue.NewTimestamp(w.I), nil
	case "duration":
		return hvalue.NewDuration(w.I), nil
	case "node_ref":
		return hvalue.NewNodeRef(hvalue.NodeId(w.I)), nil
	case "edge_ref":
		return hvalue.NewEdgeRef(hvalue.EdgeId(w.I)), nil
	default:
		return hvalue.Null, fmt.Errorf("%w: value kind %q", ErrInvalidFormat, w.K)
	}
}

func encodeEntity(e hvalue.EntityId) wireEntity {
	if nid, ok := e.AsNode(); ok {
		return wireEntity{Kind: "n", Node: uint64(nid)}
	}
	eid, _ := e.AsEdge()
	return wireEntity{Kind: "e", Edge: uint64(eid)}
}

func decodeEntity(w wireEntity) (hvalue.EntityId, error) {
	switch w.Kind {
	case "n":
		return hvalue.NewNodeEntity(hvalue.NodeId(w.Node)), nil
	case "e":
		return hvalue.NewEdgeEntity(hvalue.EdgeId(w.Edge)), nil
	default:
		return hvalue.EntityId{}, fmt.Errorf("%w: entity kind %q", ErrInvalidFormat, w.Kind)
	}
}

// encodePayload serializes everything but the LSN and kind, which live
// in the record header.
func encodePayload(e Entry) ([]byte, error) {
	p := wirePayload{
		Txn:      e.Txn,
		Node:     uint64(e.Node),
		NodeType: uint32(e.NodeType),
		Edge:     uint64(e.Edge),
		EdgeType: uint32(e.EdgeType),
		Attr:     e.Attr,
		HadOld:   e.HadOld,
		LastLSN:  e.LastCommittedLSN,
	}
	for _, t := range e.Targets {
		p.Targets = append(p.Targets, encodeEntity(t))
	}
	if len(e.Attrs) > 0 {
		p.Attrs = make(map[string]wireValue, len(e.Attrs))
		for name, v := range e.Attrs {
			p.Attrs[name] = encodeValue(v)
		}
	}
	if e.Kind == KindSetAttr {
		entity := encodeEntity(e.Entity)
		p.Entity = &entity
		old := encodeValue(e.Old)
		p.Old = &old
		nw := encodeValue(e.New)
		p.New = &nw
	}
	return json.Marshal(p)
}

func decodePayload(kind Kind, lsn uint64, data []byte) (Entry, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	e := Entry{
		LSN:              lsn,
		Kind:             kind,
		Txn:              p.Txn,
		Node:             hvalue.NodeId(p.Node),
		NodeType:         hvalue.TypeId(p.NodeType),
		Edge:             hvalue.EdgeId(p.Edge),
		EdgeType:         hvalue.EdgeTypeId(p.EdgeType),
		Attr:             p.Attr,
		HadOld:           p.HadOld,
		LastCommittedLSN: p.LastLSN,
	}
	for _, t := range p.Targets {
		entity, err := decodeEntity(t)
		if err != nil {
			return Entry{}, err
		}
		e.Targets = append(e.Targets, entity)
	}
	if len(p.Attrs) > 0 {
		e.Attrs = make(map[string]hvalue.Value, len(p.Attrs))
		for name, w := range p.Attrs {
			v, err := decodeValue(w)
			if err != nil {
				return Entry{}, err
			}
			e.Attrs[name] = v
		}
	}
	if kind == KindSetAttr {
		if p.Entity != nil {
			entity, err := decodeEntity(*p.Entity)
			if err != nil {
				return Entry{}, err
			}
			e.Entity = entity
		}
		if p.Old != nil {
			v, err := decodeValue(*p.Old)
			if err != nil {
				return Entry{}, err
			}
			e.Old = v
		}
		if p.New != nil {
			v, err := decodeValue(*p.New)
			if err != nil {
				return Entry{}, err
			}
			e.New = v
		}
	}
	return e, nil
}
