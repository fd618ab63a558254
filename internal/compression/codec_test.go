package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCompressors_RoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("cg00000029,0.4612,0.5531\n", 200))

	for _, codec := range Codecs {
		t.Run(string(codec), func(t *testing.T) {
			c, err := For(codec)
			if err != nil {
				t.Fatalf("For(%q) error = %v", codec, err)
			}
			if c.Codec() != codec {
				t.Errorf("Codec() = %q, want %q", c.Codec(), codec)
			}

			compressed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if codec != None && bytes.Equal(compressed, payload) {
				t.Error("Compress() returned the input unchanged")
			}

			got, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
			}
		})
	}
}

func TestCompressors_Stream(t *testing.T) {
	for _, codec := range Codecs {
		t.Run(string(codec), func(t *testing.T) {
			c, _ := For(codec)

			var buf bytes.Buffer
			w, err := c.CompressStream(&buf)
			if err != nil {
				t.Fatalf("CompressStream() error = %v", err)
			}
			io.WriteString(w, "a,b\n")
			io.WriteString(w, "1,2\n")
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			r, err := c.DecompressStream(&buf)
			if err != nil {
				t.Fatalf("DecompressStream() error = %v", err)
			}
			defer r.Close()

			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != "a,b\n1,2\n" {
				t.Errorf("got %q, want %q", got, "a,b\n1,2\n")
			}
		})
	}
}

func TestDecompress_Malformed(t *testing.T) {
	garbage := []byte("definitely not compressed")

	for _, codec := range []Codec{Gzip, Bzip2, Xz} {
		t.Run(string(codec), func(t *testing.T) {
			c, _ := For(codec)
			if _, err := c.Decompress(garbage); err == nil {
				t.Error("Decompress() expected error for malformed input")
			}
		})
	}
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		tag     string
		want    Codec
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"NONE", None, false},
		{"gzip", Gzip, false},
		{"gz", Gzip, false},
		{"bz2", Bzip2, false},
		{"bzip2", Bzip2, false},
		{" xz ", Xz, false},
		{"zstd", "", true},
		{"snappy", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCodec(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCodec(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCodec(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	for _, codec := range []Codec{Gzip, Bzip2, Xz} {
		c, _ := For(codec)
		data, err := c.Compress([]byte("x,y\n1,2\n"))
		if err != nil {
			t.Fatalf("Compress(%q) error = %v", codec, err)
		}
		if got := Detect(data); got != codec {
			t.Errorf("Detect(%s data) = %q, want %q", codec, got, codec)
		}
	}

	if got := Detect([]byte("x,y\n1,2\n")); got != None {
		t.Errorf("Detect(plain text) = %q, want none", got)
	}
	if got := Detect(nil); got != None {
		t.Errorf("Detect(nil) = %q, want none", got)
	}
}

func TestExtension(t *testing.T) {
	tests := map[Codec]string{None: "", Gzip: "gz", Bzip2: "bz2", Xz: "xz"}
	for codec, want := range tests {
		if got := codec.Extension(); got != want {
			t.Errorf("%q.Extension() = %q, want %q", codec, got, want)
		}
	}
}
