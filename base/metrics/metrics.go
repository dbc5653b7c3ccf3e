package metrics

const (
	ListenerMsgsDecodedH      = "The total number of PTP messages decoded"
	ListenerMsgsDecodedN      = "ptpwire_listener_msgs_decoded"
	ListenerMsgsMalformedH    = "The total number of packets that failed to decode as PTP messages"
	ListenerMsgsMalformedN    = "ptpwire_listener_msgs_malformed"
	ListenerMsgsTruncatedH    = "The total number of packets shorter than the PTP message they start"
	ListenerMsgsTruncatedN    = "ptpwire_listener_msgs_truncated"
	ListenerMsgsUnrecognizedH = "The total number of PTP messages whose body was not decoded"
	ListenerMsgsUnrecognizedN = "ptpwire_listener_msgs_unrecognized"
	ListenerPktsReceivedH     = "The total number of packets received by the listener"
	ListenerPktsReceivedN     = "ptpwire_listener_pkts_received"

	SenderMsgsSentH = "The total number of PTP messages sent"
	SenderMsgsSentN = "ptpwire_sender_msgs_sent"
)
