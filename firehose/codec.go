package firehose

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ipld/go-car"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/node/basicnode"
)

// decodeFrame splits a Firehose binary frame into its header and payload
// maps: "per-frame binary payload = concat(DagCBOR(header), DagCBOR(payload))"
// (spec §6). With DontParseBeyondEnd set, the dagcbor decoder stops at
// the end of one item, so decoding twice against the same reader —
// without re-slicing in between — yields header then payload in order.
func decodeFrame(data []byte) (header, payload map[string]any, err error) {
	r := bytes.NewReader(data)

	header, err = decodeOneDagCBOR(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode header: %w", err)
	}
	payload, err = decodeOneDagCBOR(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	return header, payload, nil
}

func decodeOneDagCBOR(r io.Reader) (map[string]any, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	opts := dagcbor.DecodeOptions{AllowLinks: true, DontParseBeyondEnd: true}
	if err := opts.Decode(nb, r); err != nil {
		return nil, err
	}
	node := nb.Build()
	v, err := nodeToGo(node)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a map, got %T", v)
	}
	return m, nil
}

// nodeToGo recursively converts an IPLD node into plain Go values: maps,
// slices, strings, int64s, float64s, bools, byte slices, or nil.
func nodeToGo(node ipld.Node) (any, error) {
	switch node.Kind() {
	case ipld.Kind_Map:
		m := make(map[string]any)
		iter := node.MapIterator()
		for !iter.Done() {
			k, v, err := iter.Next()
			if err != nil {
				return nil, err
			}
			keyStr, err := k.AsString()
			if err != nil {
				return nil, err
			}
			val, err := nodeToGo(v)
			if err != nil {
				return nil, err
			}
			m[keyStr] = val
		}
		return m, nil

	case ipld.Kind_List:
		var list []any
		iter := node.ListIterator()
		for !iter.Done() {
			_, v, err := iter.Next()
			if err != nil {
				return nil, err
			}
			val, err := nodeToGo(v)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil

	case ipld.Kind_String:
		return node.AsString()
	case ipld.Kind_Int:
		return node.AsInt()
	case ipld.Kind_Float:
		return node.AsFloat()
	case ipld.Kind_Bool:
		return node.AsBool()
	case ipld.Kind_Bytes:
		return node.AsBytes()
	case ipld.Kind_Link:
		link, err := node.AsLink()
		if err != nil {
			return nil, err
		}
		return link.String(), nil
	case ipld.Kind_Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported node kind: %v", node.Kind())
	}
}

// resolveRecord finds the block named by targetCID in a CAR archive and
// decodes it as DagCBOR into an opaque map (spec §4.5: "for each RepoOp
// resolves its cid against the archive to produce the decoded record map
// (or null if absent)").
func resolveRecord(carData []byte, targetCID string) (map[string]any, error) {
	reader, err := car.NewCarReader(bytes.NewReader(carData))
	if err != nil {
		return nil, fmt.Errorf("open CAR: %w", err)
	}

	for {
		block, err := reader.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read CAR block: %w", err)
		}
		if block.Cid().String() != targetCID {
			continue
		}
		return decodeOneDagCBOR(bytes.NewReader(block.RawData()))
	}
}
