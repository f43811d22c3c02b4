package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		eventType string
		want      Kind
	}{
		{"response.function_call.created", KindCallCreated},
		{"response.output_item.added", KindItemAdded},
		{"response.function_call.arguments.delta", KindArgumentsDelta},
		{"response.function_call_arguments.delta", KindArgumentsDelta},
		{"response.output_item.delta", KindItemDelta},
		{"response.function_call.arguments.done", KindArgumentsDone},
		{"response.function_call_arguments.done", KindArgumentsDone},
		{"response.function_call.arguments.completed", KindArgumentsDone},
		{"response.output_item.done", KindItemDone},
		{"response.audio_transcript.delta", KindTranscriptDelta},
		{"response.output_audio_transcript.done", KindTranscriptDone},
		{"error", KindError},
		{"session.created", KindSession},
		// 兜底规则
		{"response.function_call.v2.arguments.done", KindArgumentsDone},
		{"conversation.function_call.arguments.completed", KindArgumentsDone},
		{"response.function_call.v2.arguments.delta.partial", KindArgumentsDelta},
		{"response.function_call.started", KindIgnored},
		{"input_audio_buffer.speech_started", KindIgnored},
		{"", KindIgnored},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.eventType))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "arguments_done", KindArgumentsDone.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"response.function_call_arguments.delta","item_id":"item_1","delta":"{\"a\""}`))
	require.NoError(t, err)
	assert.Equal(t, KindArgumentsDelta, ev.Kind)
	assert.Equal(t, "item_1", ev.CallRef())
	assert.Equal(t, `{"a"`, ev.Fragment())

	_, err = DecodeEvent([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"item_id":"x"}`))
	assert.Error(t, err)
}

func TestServerEvent_CallRefPrecedence(t *testing.T) {
	cases := []struct {
		name string
		ev   ServerEvent
		want string
	}{
		{"call id first", ServerEvent{CallID: "call_1", ItemID: "item_1", ID: "x"}, "call_1"},
		{"item id", ServerEvent{ItemID: "item_1", ID: "x"}, "item_1"},
		{"nested item", ServerEvent{Item: &ServerItem{ID: "item_2"}, ID: "x"}, "item_2"},
		{"plain id", ServerEvent{ID: "x", ResponseID: "resp_1"}, "x"},
		{"response id", ServerEvent{ResponseID: "resp_1"}, "resp_1"},
		{"none", ServerEvent{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ev.CallRef())
		})
	}
}

func TestServerEvent_ItemRef(t *testing.T) {
	ev := ServerEvent{Item: &ServerItem{ID: "item_1", CallID: "call_1"}}
	id, callID := ev.ItemRef()
	assert.Equal(t, "item_1", id)
	assert.Equal(t, "call_1", callID)

	ev = ServerEvent{Item: &ServerItem{CallID: "call_2"}}
	id, callID = ev.ItemRef()
	assert.Equal(t, "call_2", id)
	assert.Equal(t, "call_2", callID)
}

func TestServerEvent_FragmentShapes(t *testing.T) {
	obj := ServerEvent{Delta: json.RawMessage(`{"arguments":"{\"qty\":"}`)}
	assert.Equal(t, `{"qty":`, obj.Fragment())

	str := ServerEvent{Delta: json.RawMessage(`"5}"`)}
	assert.Equal(t, "5}", str.Fragment())

	assert.Equal(t, "", ServerEvent{Delta: json.RawMessage(`null`)}.Fragment())
}

func TestServerEvent_ArgumentsText(t *testing.T) {
	ev := ServerEvent{Arguments: json.RawMessage(`"{\"sku\":\"A1\"}"`)}
	assert.Equal(t, `{"sku":"A1"}`, ev.ArgumentsText())

	ev = ServerEvent{Item: &ServerItem{Arguments: json.RawMessage(`{"sku":"B2"}`)}}
	assert.Equal(t, `{"sku":"B2"}`, ev.ArgumentsText())

	assert.Equal(t, "", ServerEvent{}.ArgumentsText())
}
