package orchestrator

import (
	"reflect"
	"sort"
	"testing"
)

func namesOf(o *Orchestrator) []string {
	names := append([]string(nil), o.sueServiceNames...)
	sort.Strings(names)
	return names
}

func TestBuildSUEServiceNames(t *testing.T) {
	all := map[string]bool{"a": true, "b": true, "c": true}

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"neither", nil, nil, []string{"a", "b", "c"}},
		{"include only", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"exclude only", nil, []string{"b"}, []string{"a", "c"}},
		{"include and exclude", []string{"a", "b", "c"}, []string{"b"}, []string{"a", "c"}},
		{"include and exclude disjoint", []string{"a"}, []string{"b"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Orchestrator{
				Include:            tt.include,
				Exclude:            tt.exclude,
				dockerServiceNames: all,
			}
			o.sueServiceNames = o.buildSUEServiceNames()
			got := namesOf(o)
			sort.Strings(tt.want)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildSUEServiceNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslateComposeNames(t *testing.T) {
	o := &Orchestrator{
		serviceContainerMap: map[string]string{"web": "sue_web_1"},
		containerServiceMap: map[string]string{"sue_web_1": "web"},
	}

	if got := o.TranslateComposeNames([]string{"web"}); !reflect.DeepEqual(got, []string{"sue_web_1"}) {
		t.Errorf("TranslateComposeNames() = %v, want [sue_web_1]", got)
	}
	if got := o.TranslateContainerNames([]string{"sue_web_1"}); !reflect.DeepEqual(got, []string{"web"}) {
		t.Errorf("TranslateContainerNames() = %v, want [web]", got)
	}
}
