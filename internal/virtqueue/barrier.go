package virtqueue

// Barrier enforces the ordering the virtio split-ring protocol requires
// between writing a ring slot and publishing the index that makes it
// visible to the device (and, symmetrically, between reading a used
// index and reading the slot it names). On real hardware this must be a
// genuine memory barrier; the kernel's boot glue replaces Barrier with
// one backed by a linked fence instruction before any queue is used.
// The default here is a plain function call, which is all a
// single-goroutine host test needs since Go's memory model already
// orders sequential code on one goroutine.
var Barrier = func() {}
