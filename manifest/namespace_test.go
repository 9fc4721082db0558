package manifest

import "testing"

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"dns", "Dns"},
		{"my-proto", "MyProto"},
		{"my_proto", "MyProto"},
		{"httpRequest", "HttpRequest"},
		{"ssh.v2", "SshV2"},
		{"a", "A"},
		{"", ""},
		{"foo-bar-baz", "FooBarBaz"},
		{"_leading", "Leading"},
	}

	for _, tc := range tests {
		got := ToPascalCase(tc.input)
		if got != tc.want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsReservedModule(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Hilti", true},
		{"BinPAC", true},
		{"Main", true},
		{"Bro", true},
		{"DNS", false},
		{"MyProto", false},
		// Multi-segment: only root checked
		{"Hilti::Ext", true},
		{"MyProto::Hilti", false},
	}

	for _, tc := range tests {
		got := IsReservedModule(tc.name)
		if got != tc.want {
			t.Errorf("IsReservedModule(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCheckModuleName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"DNS", false},
		{"Proto::Sub", false},
		{"_private", false},
		{"", true},
		{"1abc", true},
		{"Proto::", true},
		{"Pro-to", true},
		{"Hilti", true},
		{"Main::Thing", true},
	}

	for _, tc := range tests {
		err := CheckModuleName(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckModuleName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
