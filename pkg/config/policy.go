package config

// MergeAllowed implements journal.Policy by re-reading the zone's configured
// zonefile-sync value on every call, so a running daemon picks up a live
// reconfiguration without needing to reopen any journal.
func (c *Config) MergeAllowed(zoneName string) bool {
	return c.zonefileSync(zoneName) < 0
}
