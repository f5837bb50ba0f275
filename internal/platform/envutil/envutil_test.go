package envutil

import (
	"testing"
	"time"
)

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("off: want=false got=true")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("unparseable: want default true")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECS", "45")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != 45*time.Second {
		t.Fatalf("want=45s got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_SECS", "-3")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != time.Second {
		t.Fatalf("negative: want default got=%v", got)
	}
}

func TestIntAndString(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "x")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("bad int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_STR", "  v  ")
	if got := String("ENVUTIL_TEST_STR", "d"); got != "v" {
		t.Fatalf("string: want=v got=%q", got)
	}
}
