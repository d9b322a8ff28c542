package mappers

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
