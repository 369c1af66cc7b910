package provision

// Attribute written by `tmutil addexclusion`. The value is a binary property
// list holding the string "com.apple.backupd".
const backupExcludeAttr = "com.apple.metadata:com_apple_backup_excludeItem"

var backupExcludeValue = []byte("bplist00_\x10\x11com.apple.backupd\x08" +
	"\x00\x00\x00\x00\x00\x00\x01\x01" +
	"\x00\x00\x00\x00\x00\x00\x00\x01" +
	"\x00\x00\x00\x00\x00\x00\x00\x00" +
	"\x00\x00\x00\x00\x00\x00\x00\x1c")
