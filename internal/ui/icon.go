package ui

// iconBytes is a 16x16 PNG used for the tray icon.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x22, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x90, 0x93, 0xd3, 0xf8,
	0x4f, 0x09, 0x66, 0x00, 0x11, 0x61, 0x73, 0xae, 0x91, 0x85, 0x47, 0x0d,
	0x18, 0x35, 0x60, 0xd4, 0x00, 0x6a, 0x1b, 0x40, 0x09, 0x06, 0x00, 0xe2,
	0x97, 0x73, 0xaf, 0xce, 0x1a, 0x47, 0x27, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
