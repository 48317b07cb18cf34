// Package protocol defines the envelopes produced by the zentalk-streams publisher.
//
// The protocol package holds the message layer types shared by the publisher,
// the storage collaborators and the HTTP API: addresses, message ids and
// back-pointers, the StreamMessage envelope and the content carried by the
// group key exchange messages.
//
// # Message Types
//
// Every envelope carries one of the following message types:
//   - StreamMessage (27): application data published to a stream
//   - GroupKeyRequest (28): a subscriber asks a publisher for group keys
//   - GroupKeyResponse (29): the publisher answers with RSA wrapped keys
//   - GroupKeyAnnounce (30): the publisher pushes new keys unprompted
//   - GroupKeyErrorResponse (31): the publisher reports why a request failed
//
// Key exchange messages never travel on the data stream. They are published
// to the key exchange stream of the recipient:
//
//	SYSTEM/keyexchange/0x<lowercase recipient address>
//
// # Message Chains
//
// Every publishing session picks a random message chain id. Within the
// chain, each (stream, partition) pair is sequenced independently:
//   - MessageID carries (timestamp, sequence number)
//   - The sequence number restarts at 0 when the timestamp changes
//   - PrevRef points at the previous message of the same chain, nil for the first
//
// # Content Encoding
//
// Key exchange content uses positional JSON arrays:
//
//	GroupKeyRequest:       [requestId, streamId, rsaPublicKey, [groupKeyIds]]
//	GroupKeyResponse:      [requestId, streamId, [[groupKeyId, encryptedHex], ...]]
//	GroupKeyAnnounce:      [streamId, [[groupKeyId, encryptedHex], ...]]
//	GroupKeyErrorResponse: [requestId, streamId, errorCode, errorMessage, [groupKeyIds]]
//	MessageRef:            [timestamp, sequenceNumber]
//
// # Encryption
//
// EncryptionType describes SerializedContent:
//   - NONE: plain JSON
//   - AES: hex of AES-256-GCM nonce || ciphertext || tag, GroupKeyID names the key
//   - RSA: key exchange content whose keys are wrapped under the RSA public key in GroupKeyID
//
// # Error Codes
//
// A GroupKeyErrorResponse carries one of INVALID_GROUP_KEY_REQUEST,
// INVALID_GROUP_KEY_RESPONSE, INVALID_CONTENT_TYPE or UNEXPECTED_ERROR.
// CodeFor maps any error to its code; errors that are not a KeyExchangeError
// map to UNEXPECTED_ERROR.
package protocol
