package codec

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		minFields int
		wantKind  ReplyKind
		wantQueue int
		hasQueue  bool
	}{
		{name: "nothing", raw: "", minFields: MinBeaconFields, wantKind: ReplyEmpty},
		{name: "error", raw: "ERROR\r\n", minFields: MinBeaconFields, wantKind: ReplyError},
		{name: "error with detail", raw: "ERROR 10\r\n", minFields: MinBeaconFields, wantKind: ReplyError},
		{name: "flush echo", raw: "FLUSH_MT,0\r\n", minFields: MinBeaconFields, wantKind: ReplyFlush, wantQueue: 0, hasQueue: true},
		{name: "flush without mtq", raw: "FLUSH_MT\r\n", minFields: MinBeaconFields, wantKind: ReplyFlush},
		{name: "bare queue depth", raw: "3\r\n", minFields: MinBeaconFields, wantKind: ReplyQueueDepth, wantQueue: 3, hasQueue: true},
		{name: "beacon data", raw: "20230615120000,55.1,-3.2,120,1.2,90,2.0,8,101325,15.5,4.1,7\r\n", minFields: MinBeaconFields, wantKind: ReplyData},
		{name: "beacon data with mtq", raw: "20230615120000,55.1,-3.2,120,1.2,90,2.0,8,101325,15.5,4.1,7,12345,4\r\n", minFields: MinBeaconFields, wantKind: ReplyData, wantQueue: 4, hasQueue: true},
		{name: "base data", raw: "20230615120000,55.1,-3.2,120,1.2,90,2.0,8\r\n", minFields: MinBaseFields, wantKind: ReplyData},
		{name: "base-length line for beacon", raw: "20230615120000,55.1,-3.2,120,1.2,90,2.0,8\r\n", minFields: MinBeaconFields, wantKind: ReplyMalformed},
		{name: "garbage", raw: "hello world\r\n", minFields: MinBeaconFields, wantKind: ReplyMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw, tt.minFields)
			if got.Kind != tt.wantKind {
				t.Fatalf("Classify() kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.HasQueue != tt.hasQueue || got.QueueDepth != tt.wantQueue {
				t.Errorf("queue = (%d,%v), want (%d,%v)", got.QueueDepth, got.HasQueue, tt.wantQueue, tt.hasQueue)
			}
			if tt.wantKind == ReplyMalformed && got.Err == nil {
				t.Error("malformed reply without error")
			}
		})
	}
}

func TestClassifySequence(t *testing.T) {
	r := Classify("20230615120000,55.1,-3.2,120,1.2,90,2.0,8,101325,15.5,4.1,7\r\n", MinBeaconFields)
	if r.Kind != ReplyData {
		t.Fatalf("kind = %v, want data", r.Kind)
	}
	if r.Fix.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", r.Fix.Sequence)
	}
	if r.Raw != "20230615120000,55.1,-3.2,120,1.2,90,2.0,8,101325,15.5,4.1,7" {
		t.Errorf("Raw = %q", r.Raw)
	}
}
