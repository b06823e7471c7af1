package callbacks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"orderbot/core/telegram/callbacks"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		unique  string
		payload string
	}{
		{name: "nil callback", cb: nil},
		{
			name:    "unique already decoded",
			cb:      &tele.Callback{Unique: "category", Data: "Clothing"},
			unique:  "category",
			payload: "Clothing",
		},
		{
			name:    "raw encoded data",
			cb:      &tele.Callback{Data: "\fproduct|Jeans"},
			unique:  "product",
			payload: "Jeans",
		},
		{
			name:   "raw data without payload",
			cb:     &tele.Callback{Data: "\fconfirm"},
			unique: "confirm",
		},
		{
			name:    "payload keeps separators",
			cb:      &tele.Callback{Data: "\fconfirm|yes|extra"},
			unique:  "confirm",
			payload: "yes|extra",
		},
		{name: "empty data", cb: &tele.Callback{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unique, payload := callbacks.ParseCallbackData(tc.cb)
			assert.Equal(t, tc.unique, unique)
			assert.Equal(t, tc.payload, payload)
		})
	}
}
