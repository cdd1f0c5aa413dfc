package generation

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// eotSentinel - служебный маркер конца генерации, который модель может
// дописать в хвост текста. Это не часть истории и вырезается из результата.
const eotSentinel = "<|eot_id|>"

// Aggregate вычитывает поток фрагментов до конца и возвращает полный текст
// сегмента. Фрагменты склеиваются строго в порядке получения.
//
// io.EOF от Recv означает нормальное завершение потока. Любая другая ошибка -
// сбой генерации: частично накопленный текст отбрасывается и никогда не
// возвращается как готовый сегмент.
func Aggregate(stream TokenStream) (string, error) {
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		sb.WriteString(chunk)
	}

	// Маркер может быть разрезан границей фрагментов, поэтому вырезаем его
	// только после полной склейки.
	return strings.ReplaceAll(sb.String(), eotSentinel, ""), nil
}
