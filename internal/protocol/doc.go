// Package protocol implements the Qingping CGD1 alarm clock binary protocol.
//
// This package handles encoding, decoding and validation of the frames the
// clock exchanges over its GATT characteristics. It performs no I/O: the
// device package owns the connection and uses these codecs to build
// requests and interpret notifications.
//
// # Protocol Overview
//
// Every frame starts with a two-byte prefix:
//
//	11 01 / 11 02   authentication steps (16-byte token follows)
//	05 09           set time (uint32 little-endian unix seconds)
//	01 02           request configuration
//	13 02           configuration (inbound, 20 bytes)
//	13 01           configuration write (outbound, 20 bytes)
//	01 06           request alarms
//	11 06           alarm snapshot fragment (base slot + N x 5 bytes)
//	07 05           alarm slot write (slot + 5 bytes)
//	08 10           audio upload header (size u24le + signature)
//	81 08           audio data packet (128 bytes, FF padded)
//	04 FF           acknowledgement (opcode + optional status)
//	02 03           brightness preview (value / 10)
//	01 04 / 02 04   ringtone preview (optionally with volume)
//
// # Records
//
// The configuration record packs flags into single inverted bits and the
// two brightness values into nibbles; see bits.go for positions. Alarm
// slots are 5 bytes with FF FF FF FF FF marking an empty slot. Ringtones
// are selected by a 4-byte Signature; two custom signatures (DEAD, BEEF)
// are used as alternating upload targets.
//
// # Usage Example - Decoding
//
//	cfg, err := protocol.DecodeConfiguration(frame, time.Now())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.SoundVolume(), cfg.TimezoneOffset())
//
// # Usage Example - Changing settings
//
//	updated, err := protocol.NewConfigPatch().
//	    SetSoundVolume(4).
//	    SetNightMode(true).
//	    Apply(cfg)
//	if err != nil {
//	    return err // every invalid field is reported
//	}
//	frame, err := updated.Encode()
package protocol
