package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestETagRoundTrip(t *testing.T) {
	sum := Sum([]byte("x"))
	if got := FromETag(ETag(sum)); got != sum {
		t.Errorf("FromETag(ETag) = %q, want %q", got, sum)
	}
	if got := FromETag(`W/"` + sum + `"`); got != sum {
		t.Errorf("weak tag = %q", got)
	}
	if got := FromETag(" " + sum); got != sum {
		t.Errorf("bare = %q", got)
	}
	if ETag("") != "" {
		t.Error("ETag of empty digest should be empty")
	}
}
