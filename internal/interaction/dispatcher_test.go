package interaction

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
)

const (
	requiredRole = "909724765026148402"
	targetRole   = "879527848573042738"
)

func newTestDispatcher(now time.Time) *Dispatcher {
	return NewDispatcher(Options{
		ReviveRequiredRoleID: requiredRole,
		ReviveTargetRoleID:   targetRole,
		ReviveContact:        "the moderators",
		Clock:                func() time.Time { return now },
	}, zap.NewNop())
}

func encode(t *testing.T, body any) string {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return string(raw)
}

func command(name string, roles ...string) domain.Interaction {
	return domain.Interaction{
		ID:     "175928847299117063",
		Type:   domain.InteractionApplicationCommand,
		Data:   domain.InteractionData{Name: name},
		Member: &domain.Member{Roles: roles},
	}
}

func TestDispatch_Ping(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(domain.Interaction{Type: domain.InteractionPing})
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"type":1}`, encode(t, res.Body))
}

func TestDispatch_Autocomplete(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(domain.Interaction{Type: domain.InteractionApplicationCommandAutocomplete})
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"type":8,"data":{"choices":[
		{"name":"ping","value":"ping"},
		{"name":"revive","value":"revive"},
		{"name":"test","value":"test"}]}}`, encode(t, res.Body))
}

func TestDispatch_MessageComponent(t *testing.T) {
	d := newTestDispatcher(time.Now())

	res := d.Dispatch(domain.Interaction{Type: domain.InteractionMessageComponent, Data: domain.InteractionData{CustomID: "test"}})
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{}`, encode(t, res.Body))

	res = d.Dispatch(domain.Interaction{Type: domain.InteractionMessageComponent, Data: domain.InteractionData{CustomID: "nope"}})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.JSONEq(t, `{"error":"Unknown Type"}`, encode(t, res.Body))
}

func TestDispatch_ModalSubmit(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(domain.Interaction{
		Type: domain.InteractionModalSubmit,
		Data: domain.InteractionData{
			CustomID: "test",
			Components: []domain.Component{{
				Type:       domain.ComponentActionRow,
				Components: []domain.Component{{Type: domain.ComponentTextInput, CustomID: "name", Value: "Aroha"}},
			}},
		},
	})
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"type":4,"data":{"content":"Thanks for submitting!"}}`, encode(t, res.Body))
}

func TestDispatch_ReviveWithRole(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(command("revive", "1", requiredRole))
	require.Equal(t, http.StatusOK, res.Status)

	resp, ok := res.Body.(domain.InteractionResponse)
	require.True(t, ok)
	require.Equal(t, domain.ResponseChannelMessageWithSource, resp.Type)
	data := resp.Data.(domain.MessageData)
	require.Contains(t, data.Content, "<@&"+targetRole+">")
	require.Zero(t, data.Flags&domain.MessageFlagEphemeral)
	require.Equal(t, []string{targetRole}, data.AllowedMentions.Roles)
}

func TestDispatch_ReviveWithoutRole(t *testing.T) {
	d := newTestDispatcher(time.Now())
	for _, in := range []domain.Interaction{
		command("revive", "1", "2"),
		{ID: "1", Type: domain.InteractionApplicationCommand, Data: domain.InteractionData{Name: "revive"}},
	} {
		res := d.Dispatch(in)
		require.Equal(t, http.StatusOK, res.Status)
		data := res.Body.(domain.InteractionResponse).Data.(domain.MessageData)
		require.Equal(t, domain.MessageFlagEphemeral, data.Flags)
		require.Contains(t, data.Content, "You do not have the correct role")
		require.Contains(t, data.Content, "the moderators")
		require.Nil(t, data.AllowedMentions)
	}
}

func TestDispatch_CommandNameCaseInsensitive(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(command("ReViVe", requiredRole))
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, encode(t, res.Body), targetRole)
}

func TestDispatch_TestModal(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(command("test"))
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"type":9,"data":{"custom_id":"test","title":"Test","components":[{"type":1,"components":[
		{"type":4,"custom_id":"name","label":"Name","style":1,"min_length":1,"max_length":4000,"placeholder":"John","required":true}]}]}}`,
		encode(t, res.Body))
}

func TestDispatch_PingLatency(t *testing.T) {
	created := (int64(175928847299117063)+TimestampDivisor/2)/TimestampDivisor + DiscordEpochMillis
	now := time.UnixMilli(created + 1234)

	res := newTestDispatcher(now).Dispatch(command("ping"))
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"type":4,"data":{"content":"Pong! Latency: 1234ms (rounded to nearest integer)"}}`, encode(t, res.Body))
}

func TestDispatch_PingInvalidID(t *testing.T) {
	in := command("ping")
	in.ID = "abc"
	res := newTestDispatcher(time.Now()).Dispatch(in)
	require.Equal(t, http.StatusBadRequest, res.Status)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(command("dance"))
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.JSONEq(t, `{"error":"Unknown Type"}`, encode(t, res.Body))
}

func TestDispatch_UnknownType(t *testing.T) {
	res := newTestDispatcher(time.Now()).Dispatch(domain.Interaction{Type: 42})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.JSONEq(t, `{"error":"Unknown Type"}`, encode(t, res.Body))
}

func TestSubmittedValues(t *testing.T) {
	values := submittedValues([]domain.Component{{
		Type: domain.ComponentActionRow,
		Components: []domain.Component{
			{Type: domain.ComponentTextInput, CustomID: "name", Value: "Aroha"},
			{Type: domain.ComponentButton, CustomID: "ignored"},
		},
	}})
	require.Equal(t, map[string]string{"name": "Aroha"}, values)
}
