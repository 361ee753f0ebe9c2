package generation

import (
	"encoding/json"
	"testing"
)

func TestPartMarshalJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		part Part
		want string
	}{
		{name: "text", part: Part{Text: "hi"}, want: `{"text":"hi"}`},
		{name: "empty text", part: Part{}, want: `{"text":""}`},
		{name: "inline", part: Part{InlineData: &InlineData{MIMEType: "image/png", Data: "aGk="}}, want: `{"inlineData":{"mimeType":"image/png","data":"aGk="}}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tc.part)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tc.want {
				t.Fatalf("got %s, want %s", b, tc.want)
			}
		})
	}
}
