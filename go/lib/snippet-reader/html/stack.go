/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package html

import (
	"strconv"
	"strings"
)

type htmlTag struct {
	name      string
	start     int
	children  int
	innerText []byte
	xpath     string
}

// htmlStack holds the open tags, innermost last.
//
// Text under a disallowed tag is dropped until that tag is closed. Text under an
// inline tag is credited to the block that encloses it, so that "x<sup>2</sup>" stays
// one snippet.
type htmlStack struct {
	tags []*htmlTag

	disallowed      bool
	disallowedDepth int

	inline      *htmlTag
	inlineDepth int
}

func (s *htmlStack) top() *htmlTag {
	if len(s.tags) == 0 {
		return nil
	}
	return s.tags[len(s.tags)-1]
}

func (s *htmlStack) push(tag *htmlTag) {
	parent := s.top()
	if parent != nil {
		parent.children++
	}

	if s.inline == nil && parent != nil {
		if _, ok := nonBreakingNodes[tag.name]; ok {
			s.inline = parent
			s.inlineDepth = len(s.tags) + 1
		}
	}

	s.tags = append(s.tags, tag)
	tag.xpath = s.xpath()

	if !s.disallowed {
		if _, ok := disallowedNodes[tag.name]; ok {
			s.disallowed = true
			s.disallowedDepth = len(s.tags)
		}
	}
}

// collectText appends text to the tag currently receiving text. Text outside any
// tag is dropped.
func (s *htmlStack) collectText(text []byte) {
	tag := s.inline
	if tag == nil {
		tag = s.top()
	}
	if tag != nil {
		tag.innerText = append(tag.innerText, text...)
	}
}

// pop closes the innermost tag and passes it to onClose.
func (s *htmlStack) pop(onClose func(tag *htmlTag) error) error {
	tag := s.top()
	if tag == nil {
		return nil
	}
	depth := len(s.tags)
	if s.disallowed && depth == s.disallowedDepth {
		s.disallowed = false
		s.disallowedDepth = 0
	}
	if s.inline != nil && depth == s.inlineDepth {
		s.inline = nil
		s.inlineDepth = 0
	}

	s.tags[depth-1] = nil
	s.tags = s.tags[:depth-1]
	return onClose(tag)
}

// xpath locates the innermost tag: the root by name, then every descendant by its
// position among its parent's children.
func (s *htmlStack) xpath() string {
	if len(s.tags) == 0 {
		return "/"
	}
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(s.tags[0].name)
	for _, parent := range s.tags[:len(s.tags)-1] {
		b.WriteString("/*[")
		b.WriteString(strconv.Itoa(parent.children))
		b.WriteString("]")
	}
	return b.String()
}
