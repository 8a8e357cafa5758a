package protocol

// MarshalText encodes the ID as its canonical name, so JSON and YAML
// payloads carry "quic" rather than an opaque ordinal. This also applies to
// IDs used as map keys.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, ErrUnknown
	}
	return []byte(id.String()), nil
}

// UnmarshalText decodes a canonical protocol name.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
