package redis

// All keys are prefixed with "taskhub:" to avoid collisions.
const keyPrefix = "taskhub:"

// stateKey returns the Hash key for an instance: taskhub:state:{instanceID}
func stateKey(instanceID string) string { return keyPrefix + "state:" + instanceID }

// stateIDsKey is the Set tracking all instance IDs for enumeration.
const stateIDsKey = keyPrefix + "state_ids"
