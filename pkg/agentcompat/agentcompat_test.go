package agentcompat

import "testing"

func TestCheck(t *testing.T) {
	cases := []struct {
		desc     string
		agent    string
		required string
		want     bool
		wantErr  bool
	}{
		{desc: "no minimum required", agent: "1.0.0", required: "", want: true},
		{desc: "agent at minimum", agent: "2.0.0", required: "2.0.0", want: true},
		{desc: "agent above minimum", agent: "2.1.0", required: "2.0.0", want: true},
		{desc: "agent below minimum", agent: "1.9.0", required: "2.0.0", want: false},
		{desc: "malformed required version", agent: "2.0.0", required: "not-a-version", wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got, err := Check(c.agent, c.required)
			if c.wantErr {
				if err == nil {
					t.Fatalf("Check(%q, %q): expected error", c.agent, c.required)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check(%q, %q): %v", c.agent, c.required, err)
			}
			if got != c.want {
				t.Errorf("Check(%q, %q) = %v, want %v", c.agent, c.required, got, c.want)
			}
		})
	}
}
