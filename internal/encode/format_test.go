package encode

import "testing"

func TestPreferredFormatOrder(t *testing.T) {
	formats := PreferredFormats()
	if len(formats) != 3 {
		t.Fatalf("PreferredFormats() returned %d formats, want 3", len(formats))
	}
	if formats[0].Name != "mjpeg-avi" {
		t.Errorf("first preference = %q, want mjpeg-avi", formats[0].Name)
	}
	for _, f := range formats {
		if !Supported(f) {
			t.Errorf("preferred format %q reported unsupported", f.Name)
		}
		if f.Ext == "" || f.MIME == "" {
			t.Errorf("format %q missing ext or mime", f.Name)
		}
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		want bool
	}{
		{"mjpeg in avi", Format{Codec: CodecMJPEG, Container: ContainerAVI}, true},
		{"raw in avi", Format{Codec: CodecRaw, Container: ContainerAVI}, true},
		{"mjpeg stream", Format{Codec: CodecMJPEG, Container: ContainerStream}, true},
		{"raw stream", Format{Codec: CodecRaw, Container: ContainerStream}, false},
		{"unknown container", Format{Codec: CodecMJPEG, Container: "webm"}, false},
		{"unknown codec", Format{Codec: "H264", Container: ContainerAVI}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Supported(tt.f); got != tt.want {
				t.Errorf("Supported(%v) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestSelectFormat(t *testing.T) {
	f, err := SelectFormat()
	if err != nil {
		t.Fatalf("SelectFormat() error = %v", err)
	}
	if f.Name != "mjpeg-avi" {
		t.Errorf("SelectFormat() = %q, want mjpeg-avi", f.Name)
	}
}
