package sessions

import "testing"

func TestValues_Namespace(t *testing.T) {
	v := NewValues()
	if got := v.Namespace(); got != DefaultNamespace {
		t.Fatalf("expected default namespace, got %q", got)
	}
	v.SetNamespace("kube-system")
	if got := v.Namespace(); got != "kube-system" {
		t.Fatalf("expected kube-system, got %q", got)
	}
	v.SetNamespace("")
	if got := v.Namespace(); got != DefaultNamespace {
		t.Fatalf("empty namespace should fall back to default, got %q", got)
	}
}

func TestValues_GetSetDelete(t *testing.T) {
	v := NewValues()
	v.Set("n", 3)
	if got, ok := v.Get("n"); !ok || got != 3 {
		t.Fatalf("expected 3, got %v (ok=%v)", got, ok)
	}
	if _, ok := v.GetString("n"); ok {
		t.Fatalf("non-string value reported as string")
	}
	v.Delete("n")
	if _, ok := v.Get("n"); ok {
		t.Fatalf("expected key to be deleted")
	}
}
