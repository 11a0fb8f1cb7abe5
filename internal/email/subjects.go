package email

const subjectTaskAssignedFmt = "New task: %s"
