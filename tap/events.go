package tap

import (
	"fmt"

	"github.com/cometsh/drinkup/model"
)

func buildRecord(id int64, obj map[string]any) (model.TapRecord, error) {
	did, ok := model.AsString(obj, "did")
	if !ok {
		return model.TapRecord{}, fmt.Errorf("record: missing did")
	}
	collection, ok := model.AsString(obj, "collection")
	if !ok {
		return model.TapRecord{}, fmt.Errorf("record: missing collection")
	}
	rkey, ok := model.AsString(obj, "rkey")
	if !ok {
		return model.TapRecord{}, fmt.Errorf("record: missing rkey")
	}
	action, ok := model.AsString(obj, "action")
	if !ok {
		return model.TapRecord{}, fmt.Errorf("record: missing action")
	}
	rev, _ := model.AsString(obj, "rev")

	var cid *string
	if c, ok := model.AsString(obj, "cid"); ok {
		cid = &c
	}
	record, _ := model.AsMap(obj, "record")

	return model.TapRecord{
		ID:         id,
		Live:       model.AsBool(obj, "live"),
		Rev:        rev,
		DID:        model.ParseDID(did),
		Collection: model.ParseNSID(collection),
		RKey:       rkey,
		Action:     model.TapAction(action),
		CID:        cid,
		Record:     record,
	}, nil
}

func buildIdentity(id int64, obj map[string]any) (model.TapIdentity, error) {
	did, ok := model.AsString(obj, "did")
	if !ok {
		return model.TapIdentity{}, fmt.Errorf("identity: missing did")
	}
	var handle *string
	if h, ok := model.AsString(obj, "handle"); ok {
		handle = &h
	}
	var status *string
	if s, ok := model.AsString(obj, "status"); ok {
		status = &s
	}
	return model.TapIdentity{
		ID:       id,
		DID:      model.ParseDID(did),
		Handle:   handle,
		IsActive: model.AsBool(obj, "is_active"),
		Status:   status,
	}, nil
}
