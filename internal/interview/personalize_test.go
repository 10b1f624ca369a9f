package interview

import "testing"

func TestParsePersonalization(t *testing.T) {
	cases := []struct {
		name       string
		input      string
		wantName   string
		wantGender Gender
		wantOK     bool
	}{
		{
			name:       "female with filler words",
			input:      "קוראים לי דנה, בנקבה",
			wantName:   "דנה",
			wantGender: GenderFemale,
			wantOK:     true,
		},
		{
			name:       "male with filler words",
			input:      "אני יואב, בזכר",
			wantName:   "יואב",
			wantGender: GenderMale,
			wantOK:     true,
		},
		{
			name:       "bare name defaults to male",
			input:      "עומר",
			wantName:   "עומר",
			wantGender: GenderMale,
			wantOK:     true,
		},
		{
			name:       "english female indicator",
			input:      "Dana, female",
			wantName:   "Dana",
			wantGender: GenderFemale,
			wantOK:     true,
		},
		{
			name:   "empty input",
			input:  "",
			wantOK: false,
		},
		{
			name:   "only gender words",
			input:  "בנקבה",
			wantOK: false,
		},
		{
			name:   "single letter is not a name",
			input:  "א",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, gender, ok := ParsePersonalization(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			if name != tc.wantName {
				t.Fatalf("name = %q, want %q", name, tc.wantName)
			}
			if gender != tc.wantGender {
				t.Fatalf("gender = %q, want %q", gender, tc.wantGender)
			}
		})
	}
}
