package jetstream

import (
	"fmt"

	jsmodels "github.com/bluesky-social/jetstream/pkg/models"
	"github.com/goccy/go-json"

	"github.com/cometsh/drinkup/model"
)

func decodeRecord(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func buildCommit(ev *jsmodels.Event) (model.JetstreamCommit, error) {
	if ev.Commit == nil {
		return model.JetstreamCommit{}, fmt.Errorf("commit event missing commit data")
	}
	c := ev.Commit

	var cid *string
	if c.CID != "" {
		s := c.CID
		cid = &s
	}

	return model.JetstreamCommit{
		DID:        model.ParseDID(ev.Did),
		TimeUS:     ev.TimeUS,
		Operation:  model.JetstreamOperation(c.Operation),
		Collection: model.ParseNSID(c.Collection),
		RKey:       c.RKey,
		Rev:        c.Rev,
		Record:     decodeRecord(c.Record),
		CID:        cid,
	}, nil
}

func buildIdentity(ev *jsmodels.Event) (model.JetstreamIdentity, error) {
	if ev.Identity == nil {
		return model.JetstreamIdentity{}, fmt.Errorf("identity event missing identity data")
	}
	return model.JetstreamIdentity{
		DID:    model.ParseDID(ev.Identity.Did),
		TimeUS: ev.TimeUS,
		Handle: ev.Identity.Handle,
	}, nil
}

func buildAccount(ev *jsmodels.Event) (model.JetstreamAccount, error) {
	if ev.Account == nil {
		return model.JetstreamAccount{}, fmt.Errorf("account event missing account data")
	}
	a := ev.Account

	var status *model.AccountStatus
	if a.Status != nil {
		s := model.AccountStatus(*a.Status)
		status = &s
	}

	return model.JetstreamAccount{
		DID:    model.ParseDID(a.Did),
		TimeUS: ev.TimeUS,
		Active: a.Active,
		Status: status,
	}, nil
}
