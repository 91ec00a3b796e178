package firehose

import (
	"fmt"

	"github.com/cometsh/drinkup/model"
)

func asCIDString(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, true
	case []byte:
		return string(c), true
	default:
		return "", false
	}
}

func parseOps(raw any) ([]model.RepoOp, error) {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("ops: expected a list, got %T", raw)
	}

	ops := make([]model.RepoOp, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ops: expected a map entry, got %T", item)
		}
		action, ok := model.AsString(m, "action")
		if !ok {
			return nil, fmt.Errorf("ops: missing action")
		}
		path, ok := model.AsString(m, "path")
		if !ok {
			return nil, fmt.Errorf("ops: missing path")
		}
		op := model.RepoOp{
			Action: model.ParseRepoOpAction(action),
			Path:   path,
		}
		if cidRaw, present := m["cid"]; present {
			if s, ok := asCIDString(cidRaw); ok {
				op.CID = s
			}
		}
		if prevRaw, present := m["prev"]; present {
			if s, ok := asCIDString(prevRaw); ok {
				op.Prev = &s
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseCommit(payload map[string]any) (model.Commit, error) {
	seq, _ := model.AsInt64(payload, "seq")
	repo, ok := model.AsString(payload, "repo")
	if !ok {
		return model.Commit{}, fmt.Errorf("commit: missing repo")
	}
	commitCID, _ := model.AsString(payload, "commit")
	rev, _ := model.AsString(payload, "rev")
	timeStr, ok := model.AsString(payload, "time")
	if !ok {
		return model.Commit{}, fmt.Errorf("commit: missing time")
	}
	t, err := model.ParseTime(timeStr)
	if err != nil {
		return model.Commit{}, fmt.Errorf("commit: malformed time: %w", err)
	}

	ops, err := parseOps(payload["ops"])
	if err != nil {
		return model.Commit{}, fmt.Errorf("commit: %w", err)
	}

	var since *string
	if s, ok := model.AsString(payload, "since"); ok {
		since = &s
	}

	var blobs []string
	if rawBlobs, ok := payload["blobs"].([]any); ok {
		blobs = make([]string, 0, len(rawBlobs))
		for _, b := range rawBlobs {
			if s, ok := asCIDString(b); ok {
				blobs = append(blobs, s)
			}
		}
	}

	var blocks []byte
	if b, ok := payload["blocks"].([]byte); ok {
		blocks = b
		for i, op := range ops {
			if op.CID == "" {
				continue
			}
			record, resolveErr := resolveRecord(blocks, op.CID)
			if resolveErr == nil {
				ops[i].Record = record
			}
		}
	}

	return model.Commit{
		Seq:       seq,
		Repo:      model.ParseDID(repo),
		CommitCID: commitCID,
		Rev:       rev,
		Since:     since,
		Ops:       ops,
		Time:      t,
		Rebase:    model.AsBool(payload, "rebase"),
		TooBig:    model.AsBool(payload, "tooBig"),
		Blobs:     blobs,
	}, nil
}

func parseSync(payload map[string]any) (model.Sync, error) {
	seq, _ := model.AsInt64(payload, "seq")
	did, ok := model.AsString(payload, "did")
	if !ok {
		return model.Sync{}, fmt.Errorf("sync: missing did")
	}
	rev, _ := model.AsString(payload, "rev")
	timeStr, ok := model.AsString(payload, "time")
	if !ok {
		return model.Sync{}, fmt.Errorf("sync: missing time")
	}
	t, err := model.ParseTime(timeStr)
	if err != nil {
		return model.Sync{}, fmt.Errorf("sync: malformed time: %w", err)
	}
	blocks, _ := payload["blocks"].([]byte)
	return model.Sync{Seq: seq, DID: model.ParseDID(did), Blocks: blocks, Rev: rev, Time: t}, nil
}

func parseIdentity(payload map[string]any) (model.Identity, error) {
	seq, _ := model.AsInt64(payload, "seq")
	did, ok := model.AsString(payload, "did")
	if !ok {
		return model.Identity{}, fmt.Errorf("identity: missing did")
	}
	timeStr, ok := model.AsString(payload, "time")
	if !ok {
		return model.Identity{}, fmt.Errorf("identity: missing time")
	}
	t, err := model.ParseTime(timeStr)
	if err != nil {
		return model.Identity{}, fmt.Errorf("identity: malformed time: %w", err)
	}
	var handle *string
	if h, ok := model.AsString(payload, "handle"); ok {
		handle = &h
	}
	return model.Identity{Seq: seq, DID: model.ParseDID(did), Time: t, Handle: handle}, nil
}

func parseAccount(payload map[string]any) (model.Account, error) {
	seq, _ := model.AsInt64(payload, "seq")
	did, ok := model.AsString(payload, "did")
	if !ok {
		return model.Account{}, fmt.Errorf("account: missing did")
	}
	timeStr, ok := model.AsString(payload, "time")
	if !ok {
		return model.Account{}, fmt.Errorf("account: missing time")
	}
	t, err := model.ParseTime(timeStr)
	if err != nil {
		return model.Account{}, fmt.Errorf("account: malformed time: %w", err)
	}
	var status *model.AccountStatus
	if s, ok := model.AsString(payload, "status"); ok {
		as := model.AccountStatus(s)
		status = &as
	}
	return model.Account{
		Seq:    seq,
		DID:    model.ParseDID(did),
		Time:   t,
		Active: model.AsBool(payload, "active"),
		Status: status,
	}, nil
}

func parseInfo(payload map[string]any) (model.Info, error) {
	name, ok := model.AsString(payload, "name")
	if !ok {
		return model.Info{}, fmt.Errorf("info: missing name")
	}
	var msg *string
	if m, ok := model.AsString(payload, "message"); ok {
		msg = &m
	}
	return model.Info{Name: name, Message: msg}, nil
}
