package provision

// freedesktop.org common extended attribute honoured by backup tools.
const backupExcludeAttr = "user.xdg.robots.backup"

var backupExcludeValue = []byte("false")
