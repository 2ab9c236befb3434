package block

import (
	"reflect"
	"testing"
)

func TestSelectChanged(t *testing.T) {
	original := sampleBlocks()

	tests := []struct {
		name     string
		modified Blocks
		want     Blocks
	}{
		{
			name:     "exact copy yields nothing",
			modified: original.Clone(),
			want:     Blocks{},
		},
		{
			name:     "text change",
			modified: Reconcile(original, map[string]string{"para1": "New text"}),
			want:     Blocks{TextBlock{Label: "para1", Tag: TagParagraph, Content: "New text"}},
		},
		{
			name:     "image change",
			modified: Reconcile(original, map[string]string{"img1": "http://ex.com/new.png"}),
			want:     Blocks{ImageBlock{Label: "img1", Src: "http://ex.com/new.png"}},
		},
		{
			name:     "empty values never included",
			modified: Reconcile(original, map[string]string{"para1": "", "img1": ""}),
			want:     Blocks{},
		},
		{
			name:     "missing counterpart skipped",
			modified: Blocks{TextBlock{Label: "head1", Tag: TagH2, Content: "Changed heading"}},
			want:     Blocks{TextBlock{Label: "head1", Tag: TagH2, Content: "Changed heading"}},
		},
		{
			name:     "extra modified blocks ignored",
			modified: append(original.Clone(), TextBlock{Label: "para9", Tag: TagParagraph, Content: "new"}),
			want:     Blocks{},
		},
		{
			name:     "kind mismatch skipped",
			modified: Blocks{TextBlock{Label: "img1", Tag: TagParagraph, Content: "not an image"}},
			want:     Blocks{},
		},
		{
			name:     "nil modified",
			modified: nil,
			want:     Blocks{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectChanged(original, tt.modified)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectChanged() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSelectChanged_FollowsOriginalOrder(t *testing.T) {
	original := sampleBlocks()
	modified := Blocks{
		ImageBlock{Label: "img1", Src: "http://ex.com/z.png"},
		TextBlock{Label: "para1", Tag: TagParagraph, Content: "Edited paragraph"},
		TextBlock{Label: "head1", Tag: TagH2, Content: "Edited heading"},
	}

	got := SelectChanged(original, modified)

	var labels []string
	for _, b := range got {
		labels = append(labels, b.BlockLabel())
	}
	want := []string{"head1", "para1", "img1"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v", labels, want)
	}
}
