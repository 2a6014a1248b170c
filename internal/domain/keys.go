package domain

// KeyPrefix is the default namespace for every key written to the KV store.
const KeyPrefix = "toyclaw:"
