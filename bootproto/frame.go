package bootproto

const (
	startMarker0 byte = 0xAA
	startMarker1 byte = 0x55

	ack  byte = 0x79
	nack byte = 0x1F
)

// Command bytes identifying each bootloader request.
const (
	cmdWrite       byte = 0x01
	cmdRead        byte = 0x02
	cmdEraseSector byte = 0x03
	cmdEraseChip   byte = 0x04
	cmdGetInfo     byte = 0x05
	cmdVerify      byte = 0x06
)

// BufferSize is the scratch receive chunk size used when draining a WRITE
// payload into the shared buffer.
const BufferSize = 256

// MaxPayload is the largest WRITE/READ/VERIFY payload the session will
// accept, backing the single shared buffer reused across commands.
const MaxPayload = 4096

// infoRecordSize is the length of the GET_INFO response body.
const infoRecordSize = 13
