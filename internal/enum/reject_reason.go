package enum

type RejectReason string

const (
	RejectReasonNone                 RejectReason = ""
	RejectReasonInvalidRecipient     RejectReason = "invalid_recipient"
	RejectReasonSenderNotWhitelisted RejectReason = "sender_not_whitelisted"
	RejectReasonSizeExceeded         RejectReason = "size_exceeded"
	RejectReasonQuotaExceeded        RejectReason = "quota_exceeded"
	RejectReasonPersistenceFailure   RejectReason = "persistence_failure"
)

func (r RejectReason) String() string {
	return string(r)
}

// IsPermanent reports whether a retry by the upstream can ever succeed
// without operator intervention. Persistence failures are transient.
func (r RejectReason) IsPermanent() bool {
	return r != RejectReasonPersistenceFailure && r != RejectReasonNone
}
