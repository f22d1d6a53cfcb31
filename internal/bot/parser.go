package bot

import (
	"fmt"
	"strconv"
	"strings"
)

type ActionKind string

const (
	ActIncrement     ActionKind = "increment"
	ActDecrement     ActionKind = "decrement"
	ActSettlePrompt  ActionKind = "settle_prompt"
	ActSettleConfirm ActionKind = "settle_confirm"
	ActSettleCancel  ActionKind = "settle_cancel"
	ActProxyStart    ActionKind = "proxy_start"
	ActProxySelect   ActionKind = "proxy_select"
	ActProxyCancel   ActionKind = "proxy_cancel"
	ActPending       ActionKind = "pending"
	ActConfirm       ActionKind = "confirm_pending"
	ActReject        ActionKind = "reject_pending"
	ActBack          ActionKind = "back"
)

// Action is a decoded callback token such as "proxy_select:42". Prompts that
// belong to one user (settle, proxy cancel) carry that user's id.
type Action struct {
	Kind ActionKind
	ID   int64
}

func (a Action) Data() string {
	if a.Kind.takesID() {
		return fmt.Sprintf("%s:%d", a.Kind, a.ID)
	}
	return string(a.Kind)
}

func (k ActionKind) takesID() bool {
	switch k {
	case ActProxySelect, ActConfirm, ActReject,
		ActSettleConfirm, ActSettleCancel, ActProxyCancel:
		return true
	}
	return false
}

// owned reports whether ID names the user the prompt was drawn for.
func (k ActionKind) owned() bool {
	switch k {
	case ActSettleConfirm, ActSettleCancel, ActProxyCancel:
		return true
	}
	return false
}

func (k ActionKind) known() bool {
	switch k {
	case ActIncrement, ActDecrement, ActSettlePrompt, ActSettleConfirm, ActSettleCancel,
		ActProxyStart, ActProxySelect, ActProxyCancel, ActPending, ActConfirm, ActReject, ActBack:
		return true
	}
	return false
}

func ParseAction(data string) (Action, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(data), ":")
	kind := ActionKind(name)
	if !kind.known() {
		return Action{}, fmt.Errorf("unknown action %q", data)
	}
	if !kind.takesID() {
		if hasArg {
			return Action{}, fmt.Errorf("action %q takes no argument", name)
		}
		return Action{Kind: kind}, nil
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == 0 {
		return Action{}, fmt.Errorf("action %q: bad id %q", name, arg)
	}
	return Action{Kind: kind, ID: id}, nil
}
