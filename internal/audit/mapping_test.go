package audit

import "testing"

func TestMetadata(t *testing.T) {
	testCases := []struct {
		name string
		in   map[string]string
		want string
	}{
		{"nil", nil, ""},
		{"only empty values", map[string]string{"country_code": ""}, ""},
		{"single", map[string]string{"country_code": "44"}, `{"country_code":"44"}`},
		{"sorted keys", map[string]string{"reason": "bad_password", "country_code": "1"}, `{"country_code":"1","reason":"bad_password"}`},
	}
	for _, tc := range testCases {
		if got := Metadata(tc.in); got != tc.want {
			t.Errorf("%s: Metadata = %q, want %q", tc.name, got, tc.want)
		}
	}
}
