package realtime

import (
	"strings"

	"voice-agent/internal/events"
)

// 助手文本与音频转写按 response id 聚合，只用于观察，不参与调用对账。

func (t *Tracker) onTranscriptDelta(ev ServerEvent) {
	key := transcriptKey(ev)
	buf, ok := t.transcripts[key]
	if !ok {
		buf = &strings.Builder{}
		t.transcripts[key] = buf
	}
	delta := ev.Fragment()
	buf.WriteString(delta)
	t.publish(events.EventTranscriptDelta, events.Transcript{ResponseID: key, Text: delta})
}

func (t *Tracker) onTranscriptDone(ev ServerEvent) {
	key := transcriptKey(ev)
	text := ev.Transcript
	if text == "" {
		text = ev.Text
	}
	if buf, ok := t.transcripts[key]; ok {
		if text == "" {
			text = buf.String()
		}
		delete(t.transcripts, key)
	}
	t.publish(events.EventTranscriptDone, events.Transcript{ResponseID: key, Text: text, Final: true})
}

func transcriptKey(ev ServerEvent) string {
	if ev.ResponseID != "" {
		return ev.ResponseID
	}
	return ev.ItemID
}
