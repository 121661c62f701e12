package mqttbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQosForTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  byte
	}{
		{"iot/field/pump", 1},
		{"iot/field/pump/control", 1},
		{" iot/field/pump ", 1},
		{"iot/field/moisture", 0},
		{"iot/field/humidity", 0},
		{"", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, qosFor(tc.topic), "topic %q", tc.topic)
	}
}
